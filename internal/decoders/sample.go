package decoders

import (
	"math"
	"math/rand"
)

// UnitVector draws a uniformly distributed unit vector of dimension d.
// In one dimension the result is +1 or -1.
func UnitVector(rng *rand.Rand, d int) []float64 {
	for {
		v := make([]float64, d)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			continue
		}
		for i := range v {
			v[i] /= norm
		}
		return v
	}
}

// UnitVectors draws n uniformly distributed unit vectors of dimension d.
func UnitVectors(rng *rand.Rand, n, d int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = UnitVector(rng, d)
	}
	return out
}

// EvalPoints draws n points uniformly from the d-dimensional ball of the
// given radius. These are the sample inputs used for decoder fitting.
func EvalPoints(rng *rand.Rand, n, d int, radius float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		v := UnitVector(rng, d)
		r := radius * math.Pow(rng.Float64(), 1.0/float64(d))
		for j := range v {
			v[j] *= r
		}
		out[i] = v
	}
	return out
}

// Uniform draws n values uniformly from [low, high).
func Uniform(rng *rand.Rand, n int, low, high float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = low + rng.Float64()*(high-low)
	}
	return out
}
