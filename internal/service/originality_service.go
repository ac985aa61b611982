// Package service 提供了原创性检测相关的业务逻辑。
package service

import (
	"context"
	"errors"
	"fmt"

	"originality-go/internal/model"
	"originality-go/internal/repository"
	"originality-go/pkg/embedding"
	"originality-go/pkg/extractor"
	"originality-go/pkg/log"
	"originality-go/pkg/similarity"
)

// ErrExtractionFailed 表示上传的文档无法解析，或在页数上限内没有任何文本。
var ErrExtractionFailed = errors.New("Failed to extract text from PDF")

// CheckResult 是一次检测的结果以及参与比较的语料数量。
type CheckResult struct {
	model.SimilarityResult
	CorpusSize int
}

// OriginalityService 接口定义了原创性检测操作。
type OriginalityService interface {
	Check(ctx context.Context, data []byte) (*CheckResult, error)
	CorpusEntries(ctx context.Context) ([]model.CorpusEntry, error)
	CorpusSize(ctx context.Context) (int64, error)
}

type originalityService struct {
	corpus    repository.CorpusRepository
	extractor extractor.Extractor
	encoder   embedding.Client
	maxPages  int
}

// NewOriginalityService 创建一个新的 OriginalityService 实例。
func NewOriginalityService(corpus repository.CorpusRepository, ex extractor.Extractor, encoder embedding.Client, maxPages int) OriginalityService {
	if maxPages <= 0 {
		maxPages = extractor.DefaultMaxPages
	}
	return &originalityService{
		corpus:    corpus,
		extractor: ex,
		encoder:   encoder,
		maxPages:  maxPages,
	}
}

// Check 提取上传文档的文本，与全部语料逐一比较，返回最相似的文档与原创性分数。
func (s *originalityService) Check(ctx context.Context, data []byte) (*CheckResult, error) {
	log.Infof("[OriginalityService] 开始检测, 文件大小: %d字节", len(data))

	// 1. 提取文本
	text := s.extractor.Extract(ctx, data, s.maxPages)
	if text == "" {
		log.Warnf("[OriginalityService] 未能从上传文档中提取文本")
		return nil, ErrExtractionFailed
	}

	// 2. 读取语料库
	docs, err := s.corpus.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取语料库失败: %w", err)
	}
	if len(docs) == 0 {
		log.Info("[OriginalityService] 语料库为空, 直接返回 100% 原创")
		return &CheckResult{SimilarityResult: similarity.Score(nil, nil, nil)}, nil
	}

	// 3. 向量化
	query, err := s.encoder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("查询文本向量化失败: %w", err)
	}
	texts := make([]string, len(docs))
	names := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		names[i] = d.Name
	}
	vectors, err := s.encoder.EncodeBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("语料向量化失败: %w", err)
	}

	// 4. 打分
	res := similarity.Score(query, vectors, names)
	log.Infow("[OriginalityService] 检测完成",
		"corpus_size", len(docs),
		"most_similar_doc", res.MostSimilarDoc,
		"originality", res.Originality,
	)
	return &CheckResult{SimilarityResult: res, CorpusSize: len(docs)}, nil
}

func (s *originalityService) CorpusEntries(ctx context.Context) ([]model.CorpusEntry, error) {
	return s.corpus.ListEntries(ctx)
}

func (s *originalityService) CorpusSize(ctx context.Context) (int64, error) {
	return s.corpus.Count(ctx)
}
