package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"originality-go/internal/model"
	"originality-go/internal/repository"
	"originality-go/pkg/log"
	"originality-go/pkg/tasks"

	"github.com/google/uuid"
)

// ReportPublisher 把报告事件发送到消息队列。
type ReportPublisher interface {
	PublishReport(ctx context.Context, event tasks.ReportEvent) error
}

// ReportService 接口定义了检测报告的记录与查询。
type ReportService interface {
	// Record 为一次成功的检测生成报告并返回报告 ID。
	Record(ctx context.Context, fileName string, data []byte, result *CheckResult) (string, error)
	// Process 把报告事件写入数据库，供 Kafka 消费者调用。
	Process(ctx context.Context, event tasks.ReportEvent) error
	Get(ctx context.Context, reportID string) (*model.SimilarityReport, error)
	ListRecent(ctx context.Context, limit int) ([]model.SimilarityReport, error)
}

// DefaultPublishTimeout 是单次发送报告事件的最长等待时间，超时后改为直接写库。
const DefaultPublishTimeout = 2 * time.Second

type reportService struct {
	repo           repository.ReportRepository
	publisher      ReportPublisher
	publishTimeout time.Duration
}

// NewReportService 创建一个新的 ReportService 实例。publisher 为 nil 时报告直接写库；
// publishTimeout <= 0 时使用 DefaultPublishTimeout。
func NewReportService(repo repository.ReportRepository, publisher ReportPublisher, publishTimeout time.Duration) ReportService {
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}
	return &reportService{repo: repo, publisher: publisher, publishTimeout: publishTimeout}
}

func (s *reportService) Record(ctx context.Context, fileName string, data []byte, result *CheckResult) (string, error) {
	sum := sha256.Sum256(data)
	event := tasks.ReportEvent{
		ReportID:       uuid.NewString(),
		FileName:       fileName,
		FileSHA256:     hex.EncodeToString(sum[:]),
		Originality:    result.Originality,
		MostSimilarDoc: result.MostSimilarDoc,
		CorpusSize:     result.CorpusSize,
		CheckedAt:      time.Now(),
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		err := s.publisher.PublishReport(pubCtx, event)
		cancel()
		if err == nil {
			log.Infof("[ReportService] 报告事件已发送, ReportID: %s", event.ReportID)
			return event.ReportID, nil
		}
		log.Warnf("[ReportService] 发送报告事件失败, 改为直接写库: %v", err)
	}

	if err := s.Process(ctx, event); err != nil {
		return "", err
	}
	return event.ReportID, nil
}

func (s *reportService) Process(ctx context.Context, event tasks.ReportEvent) error {
	report := &model.SimilarityReport{
		ReportID:       event.ReportID,
		FileName:       event.FileName,
		FileSHA256:     event.FileSHA256,
		Originality:    event.Originality,
		MostSimilarDoc: event.MostSimilarDoc,
		CorpusSize:     event.CorpusSize,
		CreatedAt:      event.CheckedAt,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return fmt.Errorf("保存检测报告失败: %w", err)
	}
	return nil
}

func (s *reportService) Get(ctx context.Context, reportID string) (*model.SimilarityReport, error) {
	return s.repo.FindByReportID(ctx, reportID)
}

func (s *reportService) ListRecent(ctx context.Context, limit int) ([]model.SimilarityReport, error) {
	return s.repo.FindRecent(ctx, limit)
}
