package vector

import "math"

// InnerProduct returns the inner product of two vectors.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b)/(normA*normB) using precomputed norms.
// A zero norm or a length mismatch yields 0 and false.
func Cosine(a, b []float32, normA, normB float64) (float64, bool) {
	if normA == 0 || normB == 0 || len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	return InnerProduct(a, b) / (normA * normB), true
}

// CosineSimilarity computes the cosine of two vectors, deriving both norms.
func CosineSimilarity(a, b []float32) float64 {
	s, _ := Cosine(a, b, L2Norm(a), L2Norm(b))
	return s
}
