package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
	if x[0] <= 0 || x[1] <= 0 {
		t.Error("direction should be preserved")
	}
}

func TestNormalizeL2Zero(t *testing.T) {
	x := []float32{0, 0, 0}
	NormalizeL2(x)
	for _, v := range x {
		if v != 0 {
			t.Error("zero vector should be unchanged")
		}
	}
}
