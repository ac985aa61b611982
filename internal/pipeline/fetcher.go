package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"originality-go/internal/config"
	"originality-go/pkg/log"
	"originality-go/pkg/storage"

	"golang.org/x/time/rate"
)

// ErrFetchStatus 表示远端返回了非 200 状态码。
var ErrFetchStatus = errors.New("unexpected fetch status")

// Fetcher 根据地址获取文档的二进制内容。
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// RemoteFetcher 通过 HTTP(S) 下载文档，minio:// 地址交给对象存储，file:// 读取本地种子文件。
// 所有请求共享一个限速器；5xx 和网络错误按指数退避重试，4xx 直接失败。
type RemoteFetcher struct {
	client     *http.Client
	objects    Fetcher
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBytes   int64
}

// NewRemoteFetcher 创建 RemoteFetcher。objects 为 nil 时不支持 minio:// 地址。
func NewRemoteFetcher(cfg config.IngestionConfig, objects Fetcher) *RemoteFetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RemoteFetcher{
		client:     &http.Client{Timeout: timeout},
		objects:    objects,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		backoff:    time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
		maxBytes:   cfg.MaxDocumentBytes(),
	}
}

func (f *RemoteFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file location %s: %w", location, err)
		}
		return f.readFile(u.Path)
	}
	if strings.HasPrefix(location, storage.Scheme) {
		if f.objects == nil {
			return nil, fmt.Errorf("object storage is not configured for %s", location)
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return f.objects.Fetch(ctx, location)
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff << (attempt - 1)
			log.Warnf("[Fetcher] 第 %d 次重试 %s, %v 后开始, 上次错误: %v", attempt, location, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		data, retry, err := f.get(ctx, location)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (f *RemoteFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := storage.ReadAtMost(file, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return data, nil
}

func (f *RemoteFetcher) get(ctx context.Context, location string) (data []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, false, fmt.Errorf("创建下载请求失败: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("下载 %s 失败: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("%w: %s returned %d", ErrFetchStatus, location, resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, false, fmt.Errorf("%s: %w: Content-Length %d", location, storage.ErrTooLarge, resp.ContentLength)
	}
	data, err = storage.ReadAtMost(resp.Body, f.maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, false, fmt.Errorf("%s: %w", location, err)
	}
	if err != nil {
		return nil, true, fmt.Errorf("读取 %s 响应失败: %w", location, err)
	}
	return data, false, nil
}
