// Package tasks defines the structure for messages that are sent to Kafka.
package tasks

import "time"

// ReportEvent is published after a successful originality check and
// persisted into the report history by the consumer.
type ReportEvent struct {
	ReportID       string    `json:"report_id"`
	FileName       string    `json:"file_name"`
	FileSHA256     string    `json:"file_sha256"`
	Originality    float64   `json:"originality"`
	MostSimilarDoc string    `json:"most_similar_doc"`
	CorpusSize     int       `json:"corpus_size"`
	CheckedAt      time.Time `json:"checked_at"`
}
