package repository

import (
	"context"

	"originality-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceRepository 读取参考文档登记表 project_reports。Register 仅用于本地种子文件。
type SourceRepository interface {
	FindAll(ctx context.Context) ([]model.SourceDocument, error)
	Register(ctx context.Context, name, fileURL string) (bool, error)
}

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository 创建一个新的 SourceRepository 实例。
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

// FindAll 返回登记表中的全部文档。
func (r *sourceRepository) FindAll(ctx context.Context) ([]model.SourceDocument, error) {
	var docs []model.SourceDocument
	err := r.db.WithContext(ctx).Select("id", "name", "file_url").Order("id asc").Find(&docs).Error
	return docs, err
}

// Register 登记一个参考文档，同名文档已存在时不做修改，返回是否新增。
func (r *sourceRepository) Register(ctx context.Context, name, fileURL string) (bool, error) {
	doc := &model.SourceDocument{Name: name, FileURL: fileURL}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(doc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
