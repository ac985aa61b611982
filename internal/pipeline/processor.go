// Package pipeline 定义了参考文档入库的核心流程：下载、提取文本、写入语料库。
package pipeline

import (
	"context"
	"fmt"

	"originality-go/internal/model"
	"originality-go/internal/repository"
	"originality-go/pkg/extractor"
	"originality-go/pkg/log"
)

// SyncStats 汇总一次同步的结果。
type SyncStats struct {
	Total   int `json:"total"`
	Skipped int `json:"skipped"` // 语料库中已存在
	Stored  int `json:"stored"`
	Empty   int `json:"empty"` // 下载成功但没有提取到文本
	Failed  int `json:"failed"`
}

// Outcome 是单个文档的处理结果。
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeStored
	OutcomeEmpty
)

// Processor 封装了参考文档入库的所有依赖和逻辑。
type Processor struct {
	corpus    repository.CorpusRepository
	fetcher   Fetcher
	extractor extractor.Extractor
	maxPages  int
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(corpus repository.CorpusRepository, fetcher Fetcher, ex extractor.Extractor, maxPages int) *Processor {
	if maxPages <= 0 {
		maxPages = extractor.DefaultMaxPages
	}
	return &Processor{
		corpus:    corpus,
		fetcher:   fetcher,
		extractor: ex,
		maxPages:  maxPages,
	}
}

// SynchronizeRegistry 读取文档登记表并同步全部文档。
func (p *Processor) SynchronizeRegistry(ctx context.Context, registry repository.SourceRepository) (SyncStats, error) {
	sources, err := registry.FindAll(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("读取文档登记表失败: %w", err)
	}
	return p.Synchronize(ctx, sources), nil
}

// Synchronize 逐个处理登记表中的文档。已入库的文档不会被重新下载；
// 单个文档失败只记录日志，不影响其余文档。
func (p *Processor) Synchronize(ctx context.Context, sources []model.SourceDocument) SyncStats {
	stats := SyncStats{Total: len(sources)}
	log.Infof("[Processor] 开始同步参考文档, 共 %d 个", len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			stats.Failed += stats.Total - stats.Skipped - stats.Stored - stats.Empty - stats.Failed
			log.Warnf("[Processor] 同步被取消: %v", ctx.Err())
			break
		}
		res, err := p.Process(ctx, src)
		if err != nil {
			stats.Failed++
			log.Errorf("[Processor] 处理文档失败, Name: %s, Error: %v", src.Name, err)
			continue
		}
		switch res {
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeStored:
			stats.Stored++
		case OutcomeEmpty:
			stats.Empty++
		}
	}

	log.Infow("[Processor] 参考文档同步完成",
		"total", stats.Total,
		"skipped", stats.Skipped,
		"stored", stats.Stored,
		"empty", stats.Empty,
		"failed", stats.Failed,
	)
	return stats
}

// Process 处理单个文档：检查是否已存在 -> 下载 -> 提取 -> 写入。
func (p *Processor) Process(ctx context.Context, src model.SourceDocument) (Outcome, error) {
	exists, err := p.corpus.Exists(ctx, src.Name)
	if err != nil {
		return 0, fmt.Errorf("检查文档是否存在失败: %w", err)
	}
	if exists {
		log.Debugf("[Processor] 文档已存在, 跳过: %s", src.Name)
		return OutcomeSkipped, nil
	}

	data, err := p.fetcher.Fetch(ctx, src.FileURL)
	if err != nil {
		return 0, err
	}
	log.Infof("[Processor] 文档下载成功, Name: %s, 大小: %d字节", src.Name, len(data))

	text := p.extractor.Extract(ctx, data, p.maxPages)
	if text == "" {
		log.Warnf("[Processor] 文档 '%s' 没有提取到文本, 不写入语料库", src.Name)
		return OutcomeEmpty, nil
	}

	inserted, err := p.corpus.Insert(ctx, src.Name, text)
	if err != nil {
		return 0, fmt.Errorf("写入语料库失败: %w", err)
	}
	if !inserted {
		return OutcomeSkipped, nil
	}
	log.Infof("[Processor] 文档入库成功, Name: %s, 文本长度: %d", src.Name, len(text))
	return OutcomeStored, nil
}
