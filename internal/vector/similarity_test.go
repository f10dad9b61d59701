package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float64
		wantOK bool
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1, true},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0, false},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cosine(tt.a, tt.b, L2Norm(tt.a), L2Norm(tt.b))
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v,%v want %v,%v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v", got)
	}
	if got := L2Norm(nil); got != 0 {
		t.Errorf("L2Norm(nil) = %v", got)
	}
}
