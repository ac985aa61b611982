package model

import "time"

// SimilarityReport 对应于数据库中的 'similarity_reports' 表，记录每次检测的结果。
type SimilarityReport struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ReportID       string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"reportId"`
	FileName       string    `gorm:"type:varchar(255)" json:"fileName"`
	FileSHA256     string    `gorm:"type:varchar(64);index;column:file_sha256" json:"fileSha256"`
	Originality    float64   `gorm:"not null" json:"originality"`
	MostSimilarDoc string    `gorm:"type:varchar(255)" json:"mostSimilarDoc"`
	CorpusSize     int       `gorm:"not null" json:"corpusSize"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SimilarityReport) TableName() string {
	return "similarity_reports"
}

// SimilarityReportDTO 定义了返回给前端的报告结构。
type SimilarityReportDTO struct {
	ReportID       string    `json:"reportId"`
	FileName       string    `json:"fileName"`
	FileSHA256     string    `json:"fileSha256"`
	Originality    float64   `json:"originality"`
	MostSimilarDoc string    `json:"mostSimilarDoc"`
	CorpusSize     int       `json:"corpusSize"`
	CreatedAt      LocalTime `json:"createdAt"`
}

// ToDTO 将数据库记录转换为响应结构。
func (r SimilarityReport) ToDTO() SimilarityReportDTO {
	return SimilarityReportDTO{
		ReportID:       r.ReportID,
		FileName:       r.FileName,
		FileSHA256:     r.FileSHA256,
		Originality:    r.Originality,
		MostSimilarDoc: r.MostSimilarDoc,
		CorpusSize:     r.CorpusSize,
		CreatedAt:      LocalTime(r.CreatedAt),
	}
}
