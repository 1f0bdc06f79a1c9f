// Package num provides small float64 vector and matrix helpers shared by the
// neuron model, the compiler, and the engine. Anything heavier than these
// direct loops goes through gonum in the decoders package.
package num

import "math"

// Dot returns the dot product of a and b. Vectors of different lengths or
// empty vectors return 0.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// MatVec computes m·x into out. out must have len(m) elements and every row
// of m must have len(x) elements.
func MatVec(m [][]float64, x, out []float64) {
	for i, row := range m {
		out[i] = Dot(row, x)
	}
}

// Identity returns the n-by-n identity matrix.
func Identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

// CloneMat returns a deep copy of m.
func CloneMat(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Rectangular reports whether every row of m has exactly cols elements.
func Rectangular(m [][]float64, cols int) bool {
	for _, row := range m {
		if len(row) != cols {
			return false
		}
	}
	return true
}

// MaxAbs returns the largest absolute value in m, or 0 for an empty matrix.
func MaxAbs(m [][]float64) float64 {
	var max float64
	for _, row := range m {
		for _, v := range row {
			if a := math.Abs(v); a > max {
				max = a
			}
		}
	}
	return max
}
