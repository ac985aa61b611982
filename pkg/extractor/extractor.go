// Package extractor 把上传或拉取到的文档字节转换为纯文本，只读取前 maxPages 页。
package extractor

import (
	"context"
	"fmt"

	"originality-go/internal/config"
)

// DefaultMaxPages 是未指定页数上限时读取的页数。
const DefaultMaxPages = 10

// Extractor 从文档中提取文本。
// 任何解析失败都会被记录日志并返回空字符串，由调用方决定如何处理空结果。
type Extractor interface {
	Extract(ctx context.Context, data []byte, maxPages int) string
}

// New 根据配置创建提取器。
func New(cfg config.ExtractorConfig) (Extractor, error) {
	switch cfg.Type {
	case "", "pdf":
		return NewPDF(), nil
	case "tika":
		if cfg.TikaServerURL == "" {
			return nil, fmt.Errorf("extractor.tika_server_url is required for tika extractor")
		}
		return NewTika(cfg.TikaServerURL), nil
	default:
		return nil, fmt.Errorf("unknown extractor type: %s", cfg.Type)
	}
}

func pageLimit(maxPages int) int {
	if maxPages <= 0 {
		return DefaultMaxPages
	}
	return maxPages
}
