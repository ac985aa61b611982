package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"originality-go/internal/config"
	"originality-go/pkg/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader 依次返回预设消息，耗尽后阻塞直到 ctx 取消。
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		return m, nil
	}
	if r.drained != nil {
		close(r.drained)
		r.drained = nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingProcessor struct {
	failures int
	calls    int
	events   []tasks.ReportEvent
}

func (p *recordingProcessor) Process(_ context.Context, event tasks.ReportEvent) error {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errors.New("database unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func eventMessage(t *testing.T, offset int64, event tasks.ReportEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(event.ReportID), Value: value}
}

func TestProducer_PublishReport(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}
	event := tasks.ReportEvent{ReportID: "r-1", FileName: "a.pdf", Originality: 12.5, CheckedAt: time.Now().UTC()}

	require.NoError(t, p.PublishReport(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "r-1", string(w.msgs[0].Key))

	var got tasks.ReportEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, event.FileName, got.FileName)
	assert.Equal(t, event.Originality, got.Originality)
}

func TestConsumer_HandleSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	proc := &recordingProcessor{}
	c := &Consumer{rdb: rdb, processor: proc}

	assert.True(t, c.handle(context.Background(), eventMessage(t, 1, tasks.ReportEvent{ReportID: "r-1"})))
	require.Len(t, proc.events, 1)
	assert.False(t, mr.Exists("kafka:attempts:r-1"))
}

func TestConsumer_HandleRetriesBeforeCommitting(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	proc := &recordingProcessor{failures: 2}
	c := &Consumer{rdb: rdb, processor: proc}

	assert.True(t, c.handle(context.Background(), eventMessage(t, 3, tasks.ReportEvent{ReportID: "r-3"})))
	require.Len(t, proc.events, 1)
	assert.Equal(t, 3, proc.calls)
	assert.False(t, mr.Exists("kafka:attempts:r-3"))
	assert.False(t, mr.Exists(deadLetterKey))
}

func TestConsumer_HandleGivesUpAfterMaxAttempts(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	proc := &recordingProcessor{failures: 10}
	c := &Consumer{rdb: rdb, processor: proc}
	m := eventMessage(t, 7, tasks.ReportEvent{ReportID: "r-2"})

	assert.True(t, c.handle(context.Background(), m))
	assert.Equal(t, maxAttempts, proc.calls)
	assert.Empty(t, proc.events)

	dead, err := mr.List(deadLetterKey)
	require.NoError(t, err)
	assert.Equal(t, []string{string(m.Value)}, dead)
	assert.False(t, mr.Exists("kafka:attempts:r-2"))
}

func TestConsumer_HandleContinuesCountAfterRedelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("kafka:attempts:r-5", "2"))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	proc := &recordingProcessor{failures: 10}
	c := &Consumer{rdb: rdb, processor: proc}

	assert.True(t, c.handle(context.Background(), eventMessage(t, 9, tasks.ReportEvent{ReportID: "r-5"})))
	assert.Equal(t, 1, proc.calls)
	assert.True(t, mr.Exists(deadLetterKey))
}

func TestConsumer_HandleMalformedIsCommitted(t *testing.T) {
	c := &Consumer{processor: &recordingProcessor{}}
	assert.True(t, c.handle(context.Background(), kafka.Message{Value: []byte("{not json")}))
	assert.True(t, c.handle(context.Background(), kafka.Message{Value: []byte(`{"file_name":"x"}`)}))
}

func TestConsumer_HandleWithoutRedisRetriesInProcess(t *testing.T) {
	proc := &recordingProcessor{failures: 5}
	c := &Consumer{processor: proc}

	assert.True(t, c.handle(context.Background(), eventMessage(t, 1, tasks.ReportEvent{ReportID: "r-4"})))
	assert.Equal(t, maxAttempts, proc.calls)

	proc = &recordingProcessor{failures: 1}
	c = &Consumer{processor: proc}
	assert.True(t, c.handle(context.Background(), eventMessage(t, 2, tasks.ReportEvent{ReportID: "r-6"})))
	assert.Len(t, proc.events, 1)
}

func TestConsumer_HandleStopsWaitingOnCancel(t *testing.T) {
	proc := &recordingProcessor{failures: 5}
	c := &Consumer{processor: proc, retryBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan bool, 1)
	go func() { done <- c.handle(ctx, eventMessage(t, 1, tasks.ReportEvent{ReportID: "r-7"})) }()

	select {
	case committed := <-done:
		assert.False(t, committed)
	case <-time.After(5 * time.Second):
		t.Fatal("handle kept waiting after cancellation")
	}
	assert.Equal(t, 1, proc.calls)
}

func TestConsumer_RunProcessesLaterMessagesAfterFailure(t *testing.T) {
	drained := make(chan struct{})
	reader := &fakeReader{
		msgs: []kafka.Message{
			eventMessage(t, 1, tasks.ReportEvent{ReportID: "a"}),
			eventMessage(t, 2, tasks.ReportEvent{ReportID: "b"}),
		},
		drained: drained,
	}
	// 第一条消息失败一次后成功，必须在取第二条之前保存
	proc := &recordingProcessor{failures: 1}
	c := &Consumer{reader: reader, processor: proc}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-drained
	cancel()
	require.NoError(t, <-done)

	require.Len(t, proc.events, 2)
	assert.Equal(t, "a", proc.events[0].ReportID)
	assert.Equal(t, "b", proc.events[1].ReportID)
	require.Len(t, reader.committed, 2)
	assert.Equal(t, int64(1), reader.committed[0].Offset)
}

func TestConsumer_RunCommitsAndStopsOnCancel(t *testing.T) {
	drained := make(chan struct{})
	reader := &fakeReader{
		msgs: []kafka.Message{
			eventMessage(t, 1, tasks.ReportEvent{ReportID: "a"}),
			eventMessage(t, 2, tasks.ReportEvent{ReportID: "b"}),
		},
		drained: drained,
	}
	proc := &recordingProcessor{}
	c := &Consumer{reader: reader, processor: proc}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-drained
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, proc.events, 2)
	assert.Len(t, reader.committed, 2)
	assert.True(t, reader.closed)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, brokers(config.KafkaConfig{Brokers: "k1:9092, k2:9092,"}))
}
