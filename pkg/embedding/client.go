// Package embedding provides text encoders that turn text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"time"

	"originality-go/internal/config"
	"originality-go/pkg/log"
)

// Client defines the interface for an embedding client.
type Client interface {
	// Encode returns the vector for a single text.
	Encode(ctx context.Context, text string) ([]float32, error)
	// EncodeBatch returns one vector per input text, in input order.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the encoder; vectors from different models are not comparable.
	Model() string
}

// NewClient creates an embedding client based on the provider in the config.
func NewClient(cfg config.EmbeddingConfig) (Client, error) {
	switch cfg.Provider {
	case "hash":
		log.Warnf("[Embedding] 使用 hash 编码器：只比较词面，不理解语义，model=%q 配置不生效", cfg.Model)
		return NewHashEncoder(cfg.Dimensions), nil
	case "", "openai":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedding base_url is required for provider %q", cfg.Provider)
		}
		timeout := time.Duration(cfg.TimeoutSecs) * time.Second
		return newOpenAICompatibleClient(cfg, timeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
