// Package similarity ranks corpus vectors against a query vector and turns the
// best match into an originality score.
package similarity

import (
	"math"

	"originality-go/internal/model"
)

// Cosine returns the cosine similarity of a and b. Vectors of different length
// or with zero magnitude have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Best returns the index and value of the highest similarity between query and
// corpus. Ties keep the first index. It returns -1 for an empty corpus.
func Best(query []float32, corpus [][]float32) (int, float64) {
	best, bestSim := -1, 0.0
	for i, vec := range corpus {
		sim := Cosine(query, vec)
		if best == -1 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best, bestSim
}

// Originality converts a similarity into a score in [0, 100] rounded to two
// decimals. Negative similarity yields 100.
func Originality(sim float64) float64 {
	score := (1 - sim) * 100
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return math.Round(score*100) / 100
}

// Score finds the corpus entry most similar to query. names[i] identifies
// corpus[i]. An empty corpus is fully original.
func Score(query []float32, corpus [][]float32, names []string) model.SimilarityResult {
	if len(corpus) == 0 {
		return model.SimilarityResult{Originality: 100.0, MostSimilarDoc: model.NoDocumentsInDatabase}
	}

	idx, sim := Best(query, corpus)
	name := ""
	if idx < len(names) {
		name = names[idx]
	}
	return model.SimilarityResult{
		Originality:    Originality(sim),
		MostSimilarDoc: name,
	}
}
