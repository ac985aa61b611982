package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"originality-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// Cached wraps a Client and stores vectors in Redis keyed by model and the
// SHA-256 of the text. Redis failures fall back to the wrapped client.
type Cached struct {
	inner Client
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCached creates a caching decorator around inner.
func NewCached(inner Client, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *Cached) Model() string {
	return c.inner.Model()
}

func (c *Cached) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Cached) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warnf("[EmbeddingCache] 读取向量缓存失败, 直接调用模型: %v", err)
		cached = nil
	}
	for i, v := range cached {
		if s, ok := v.(string); ok {
			out[i] = decodeVector([]byte(s))
		}
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if out[i] == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EncodeBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("[EmbeddingCache] 写入向量缓存失败: %v", err)
	}
	log.Debugf("[EmbeddingCache] 命中 %d 条, 新计算 %d 条", len(texts)-len(missTexts), len(missTexts))
	return out, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
