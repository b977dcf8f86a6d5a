package kg

import "math"

// EmbeddingDim is the vector width the graph stores. Vectors of any other
// width are rejected before they reach storage.
const EmbeddingDim = 1536

// ValidEmbedding reports whether emb is a usable query or storage vector.
func ValidEmbedding(emb []float32) bool {
	return len(emb) == EmbeddingDim
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty, zero-length in magnitude, or the widths
// disagree. Matches 1 - cosine_distance as pgvector computes it.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
