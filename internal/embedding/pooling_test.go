package embedding

import (
	"reflect"
	"testing"
)

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100, // padding
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if !reflect.DeepEqual(got, []float32{2, 3}) {
		t.Errorf("meanPool = %v, want [2 3]", got)
	}
}

func TestMeanPool_EmptyMask(t *testing.T) {
	got := meanPool([]float32{1, 2}, []int64{0}, 2)
	if !reflect.DeepEqual(got, []float32{0, 0}) {
		t.Errorf("meanPool = %v, want zeros", got)
	}
}
