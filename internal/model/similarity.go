package model

// NoDocumentsInDatabase 是语料为空时 MostSimilarDoc 的占位值。
const NoDocumentsInDatabase = "No documents in database"

// SimilarityResult 是一次原创度检测的结果，不落库。
type SimilarityResult struct {
	Originality    float64 `json:"originality"`
	MostSimilarDoc string  `json:"most_similar_doc"`
}
