// Package decoders solves for linear readout weights that reconstruct a
// target function from noisy population activity, and provides the
// deterministic sampling used to generate fitting inputs and encoders.
package decoders

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LstsqL2 solves the Tikhonov-regularized least-squares problem
//
//	min ‖A·D − T‖² + M·σ²·‖D‖²
//
// where A is the M×N activity matrix, T is the M×D target matrix, and
// σ = noise·max(A) models the expected spiking noise. It returns the N×D
// decoder matrix. The normal equations are solved by Cholesky; if the
// regularized Gram matrix is still numerically singular, an SVD-based
// pseudo-inverse solve is used instead, so ordinary inputs never fail.
func LstsqL2(activities, targets [][]float64, noise float64) ([][]float64, error) {
	m := len(activities)
	if m == 0 || m != len(targets) {
		return nil, fmt.Errorf("decoders: need matching activity and target rows, got %d and %d",
			m, len(targets))
	}
	n := len(activities[0])
	d := len(targets[0])
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("decoders: empty activity or target columns")
	}

	a := mat.NewDense(m, n, nil)
	var maxAct float64
	for i, row := range activities {
		if len(row) != n {
			return nil, fmt.Errorf("decoders: ragged activity row %d", i)
		}
		for j, v := range row {
			a.Set(i, j, v)
			if v > maxAct {
				maxAct = v
			} else if -v > maxAct {
				maxAct = -v
			}
		}
	}
	t := mat.NewDense(m, d, nil)
	for i, row := range targets {
		if len(row) != d {
			return nil, fmt.Errorf("decoders: ragged target row %d", i)
		}
		for j, v := range row {
			t.Set(i, j, v)
		}
	}

	// Normal equations: G = AᵀA + M·σ²·I, Y = AᵀT.
	sigma := noise * maxAct
	lambda := float64(m) * sigma * sigma

	var g mat.Dense
	g.Mul(a.T(), a)
	var y mat.Dense
	y.Mul(a.T(), t)

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := g.At(i, j)
			if i == j {
				v += lambda
			}
			sym.SetSym(i, j, v)
		}
	}

	var x mat.Dense
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveTo(&x, &y); err == nil {
			return toRows(&x, n, d), nil
		}
	}

	// Regularized system still singular: fall back to a pseudo-inverse via
	// SVD rather than surfacing an error.
	var svd mat.SVD
	if !svd.Factorize(sym, mat.SVDFull) {
		return nil, fmt.Errorf("decoders: SVD factorization failed")
	}
	values := svd.Values(nil)
	tol := 1e-12
	if len(values) > 0 {
		tol *= values[0]
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// X = V·Σ⁺·Uᵀ·Y, truncating singular values below tol.
	var uty mat.Dense
	uty.Mul(u.T(), &y)
	scaled := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		if values[i] <= tol {
			continue
		}
		for j := 0; j < d; j++ {
			scaled.Set(i, j, uty.At(i, j)/values[i])
		}
	}
	x.Mul(&v, scaled)
	return toRows(&x, n, d), nil
}

func toRows(x *mat.Dense, n, d int) [][]float64 {
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			out[i][j] = x.At(i, j)
		}
	}
	return out
}
