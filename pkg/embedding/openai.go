package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"originality-go/internal/config"
	"originality-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

func newOpenAICompatibleClient(cfg config.EmbeddingConfig, timeout time.Duration) *openAICompatibleClient {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *openAICompatibleClient) Model() string {
	return c.cfg.Model
}

// Encode calls the OpenAI-compatible API to get the vector for a given text.
func (c *openAICompatibleClient) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeBatch splits texts into batches of cfg.BatchSize and sends them with
// at most cfg.MaxConcurrency requests in flight.
func (c *openAICompatibleClient) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.MaxConcurrency)

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		start := start
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		eg.Go(func() error {
			vectors, err := c.request(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d]: %w", start, end, err)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *openAICompatibleClient) request(ctx context.Context, input []string) ([][]float32, error) {
	log.Debugf("[EmbeddingClient] 调用 Embedding API, model: %s, inputs: %d", c.cfg.Model, len(input))
	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      input,
		Dimensions: c.cfg.Dimensions,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("embedding api returned non-200 status: %s: %s", resp.Status, string(body))
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Data) != len(input) {
		return nil, fmt.Errorf("embedding api returned %d vectors for %d inputs", len(embeddingResp.Data), len(input))
	}

	vectors := make([][]float32, len(input))
	for _, d := range embeddingResp.Data {
		if d.Index < 0 || d.Index >= len(input) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding api returned invalid vector at index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding api returned no vector for input %d", i)
		}
	}
	return vectors, nil
}
