// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"

	"originality-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("record not found")

// CorpusRepository 定义了对 extracted_documents 表（语料库）的数据操作接口。
type CorpusRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	// Insert 仅在 name 不存在时写入，返回是否真正写入。已存在时不覆盖也不报错。
	Insert(ctx context.Context, name, text string) (bool, error)
	// ListAll 按写入顺序返回全部语料。
	ListAll(ctx context.Context) ([]model.ExtractedDocument, error)
	ListEntries(ctx context.Context) ([]model.CorpusEntry, error)
	Count(ctx context.Context) (int64, error)
}

type corpusRepository struct {
	db *gorm.DB
}

// NewCorpusRepository 创建一个新的 CorpusRepository 实例。
func NewCorpusRepository(db *gorm.DB) CorpusRepository {
	return &corpusRepository{db: db}
}

// Exists 检查指定名称的文档是否已经提取过。
func (r *corpusRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ExtractedDocument{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Insert 借助唯一索引与 ON CONFLICT DO NOTHING 保证同名文档只写入一次。
func (r *corpusRepository) Insert(ctx context.Context, name, text string) (bool, error) {
	doc := &model.ExtractedDocument{Name: name, Text: text}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(doc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListAll 返回全部语料，按主键升序。
func (r *corpusRepository) ListAll(ctx context.Context) ([]model.ExtractedDocument, error) {
	var docs []model.ExtractedDocument
	err := r.db.WithContext(ctx).Order("id asc").Find(&docs).Error
	return docs, err
}

// textLengthExpr 返回按字符计数的长度表达式。MySQL 的 LENGTH 按字节计数。
func textLengthExpr(dialect string) string {
	if dialect == "mysql" {
		return "CHAR_LENGTH(text)"
	}
	return "LENGTH(text)"
}

// ListEntries 返回语料的名称与文本长度（字符数），不加载全文。
func (r *corpusRepository) ListEntries(ctx context.Context) ([]model.CorpusEntry, error) {
	var entries []model.CorpusEntry
	err := r.db.WithContext(ctx).Model(&model.ExtractedDocument{}).
		Select("name, " + textLengthExpr(r.db.Dialector.Name()) + " AS text_length").
		Order("id asc").
		Scan(&entries).Error
	return entries, err
}

// Count 返回语料数量。
func (r *corpusRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ExtractedDocument{}).Count(&count).Error
	return count, err
}
