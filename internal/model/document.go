// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// SourceDocument 对应于数据库中的 'project_reports' 表，是参考文档的登记表。
// 本系统只读取它。
type SourceDocument struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	FileURL string `gorm:"type:varchar(1024);not null;column:file_url" json:"fileUrl"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SourceDocument) TableName() string {
	return "project_reports"
}

// ExtractedDocument 对应于数据库中的 'extracted_documents' 表。
// 每个参考文档只提取一次，Name 唯一，写入后不再修改。
type ExtractedDocument struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Text      string    `gorm:"type:longtext;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ExtractedDocument) TableName() string {
	return "extracted_documents"
}

// CorpusEntry 是语料列表接口返回的摘要信息。
type CorpusEntry struct {
	Name       string `json:"name"`
	TextLength int    `json:"textLength"`
}
