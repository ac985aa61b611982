package repository

import (
	"context"
	"errors"

	"originality-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository 定义了对 similarity_reports 表的数据操作接口。
type ReportRepository interface {
	// Create 写入报告，ReportID 已存在时忽略（消费者重投递时保持幂等）。
	Create(ctx context.Context, report *model.SimilarityReport) error
	FindByReportID(ctx context.Context, reportID string) (*model.SimilarityReport, error)
	FindRecent(ctx context.Context, limit int) ([]model.SimilarityReport, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建一个新的 ReportRepository 实例。
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.SimilarityReport) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "report_id"}}, DoNothing: true}).
		Create(report).Error
}

func (r *reportRepository) FindByReportID(ctx context.Context, reportID string) (*model.SimilarityReport, error) {
	var report model.SimilarityReport
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindRecent(ctx context.Context, limit int) ([]model.SimilarityReport, error) {
	if limit <= 0 {
		limit = 20
	}
	var reports []model.SimilarityReport
	err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&reports).Error
	return reports, err
}
