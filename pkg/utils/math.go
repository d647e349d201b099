package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm. A zero vector is left as-is.
func NormalizeL2(x []float32) {
	var sumSq float64
	for _, v := range x {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range x {
		x[i] *= inv
	}
}
