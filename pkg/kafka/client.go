// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"originality-go/internal/config"
	"originality-go/pkg/log"
	"originality-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

const (
	// maxAttempts 是同一条消息处理失败后放弃前的最大次数。
	maxAttempts = 3
	// deadLetterKey 保存放弃处理的原始消息。
	deadLetterKey = "kafka:dead_letter:reports"

	defaultRetryBackoff = time.Second
)

// ReportProcessor 持久化一条检测报告事件。
type ReportProcessor interface {
	Process(ctx context.Context, event tasks.ReportEvent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer 发送检测报告事件。
type Producer struct {
	writer messageWriter
}

// NewProducer 初始化 Kafka 生产者。消息立即发送，不等待凑批。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w}
}

// PublishReport 发送一条报告事件，以报告 ID 作为消息 key。
func (p *Producer) PublishReport(ctx context.Context, event tasks.ReportEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ReportID),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer 消费报告事件并交给 ReportProcessor 持久化。
// 失败的消息在提交 offset 之前就地重试，累计 maxAttempts 次后写入死信列表并提交。
// 尝试次数记录在 Redis 中，进程重启后重新投递的消息会接着计数。
type Consumer struct {
	reader       messageReader
	rdb          *redis.Client
	processor    ReportProcessor
	retryBackoff time.Duration
}

// NewConsumer 创建报告事件消费者。rdb 为 nil 时只在本进程内计数，且不保留死信。
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor ReportProcessor) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: r, rdb: rdb, processor: processor, retryBackoff: defaultRetryBackoff}
}

// Run 持续消费直到 ctx 被取消或读取失败。
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka 消费者已启动，正在监听报告事件")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return nil
			}
			log.Error("从 Kafka 读取消息失败", err)
			return err
		}
		if c.handle(ctx, m) {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}
}

// handle 处理一条消息并返回是否应当提交 offset。
// 只有 ctx 在重试等待中被取消时返回 false，该消息会在下次启动后重新投递。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) bool {
	log.Debugf("收到 Kafka 消息: offset %d", m.Offset)

	var event tasks.ReportEvent
	if err := json.Unmarshal(m.Value, &event); err != nil || event.ReportID == "" {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return true
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", event.ReportID)
	attempts := c.attempts(ctx, attemptsKey)
	for attempts < maxAttempts {
		if attempts > 0 {
			wait := c.retryBackoff * time.Duration(1<<(attempts-1))
			select {
			case <-ctx.Done():
				log.Warnf("等待重试时消费者停止，不提交 offset: ReportID=%s", event.ReportID)
				return false
			case <-time.After(wait):
			}
		}

		err := c.processor.Process(ctx, event)
		if err == nil {
			log.Infof("检测报告保存成功: ReportID=%s", event.ReportID)
			if c.rdb != nil {
				_ = c.rdb.Del(ctx, attemptsKey).Err()
			}
			return true
		}
		attempts++
		c.recordAttempt(ctx, attemptsKey)
		log.Errorf("保存检测报告失败(第 %d/%d 次): ReportID=%s, Error: %v", attempts, maxAttempts, event.ReportID, err)
	}

	log.Errorf("检测报告多次保存失败(>=%d)，写入死信列表并提交 offset: ReportID=%s", maxAttempts, event.ReportID)
	c.deadLetter(ctx, attemptsKey, m)
	return true
}

// attempts 返回此前投递中已经失败的次数，Redis 不可用时从 0 开始。
func (c *Consumer) attempts(ctx context.Context, key string) int {
	if c.rdb == nil {
		return 0
	}
	n, err := c.rdb.Get(ctx, key).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("读取重试计数失败: %v", err)
		}
		return 0
	}
	return n
}

func (c *Consumer) recordAttempt(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		log.Warnf("记录重试计数失败: %v", err)
		return
	}
	_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
}

func (c *Consumer) deadLetter(ctx context.Context, attemptsKey string, m kafka.Message) {
	if c.rdb == nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, deadLetterKey, m.Value)
	pipe.Del(ctx, attemptsKey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("写入死信列表失败: %v", err)
	}
}
