package model

import (
	"fmt"

	"github.com/hunse/nengo/internal/constants"
	"github.com/hunse/nengo/internal/num"
)

// Object is anything registered in a network scope: ensembles, nodes,
// connections, probes, and nested networks.
type Object interface {
	ObjectName() string
}

// Output is the declared output of a Node, decided once at declaration:
// either a fixed vector or a function of simulation time.
type Output interface {
	isOutput()
}

// Constant is a fixed vector output.
type Constant []float64

func (Constant) isOutput() {}

// Scalar is shorthand for a one-dimensional Constant.
func Scalar(v float64) Constant { return Constant{v} }

// TimeFunction is an output evaluated fresh each step at the current
// simulation time. The returned length must be constant across calls.
type TimeFunction func(t float64) []float64

func (TimeFunction) isOutput() {}

// Node is a declared external input, or, when declared without an output, a
// passthrough sink whose value is the sum of its inbound filtered signals.
type Node struct {
	name string

	// Output is nil for sink nodes.
	Output Output

	// Size is the output length. For TimeFunction outputs it is measured at
	// declaration by evaluating the function at t=0.
	Size int
}

func (n *Node) ObjectName() string { return n.name }

// Ensemble is a population of neurons representing a real vector.
// Randomized attributes left nil here are materialized at build time from
// the model seed; user-supplied values are validated at declaration and
// used verbatim.
type Ensemble struct {
	name string

	NNeurons   int
	Dimensions int

	// Radius is the expected magnitude of the represented vector.
	Radius float64

	// Encoders, when set, is NNeurons rows of Dimensions-length unit
	// vectors (rows are normalized at declaration).
	Encoders [][]float64

	// MaxRates and Intercepts, when set, fix each neuron's tuning curve.
	MaxRates   []float64
	Intercepts []float64

	// EvalPoints, when set, are the sample inputs used for decoder fitting.
	EvalPoints [][]float64
}

func (e *Ensemble) ObjectName() string { return e.name }

// Neurons returns the raw per-neuron terminal of the ensemble, for
// connections that bypass encoding and decoding.
func (e *Ensemble) Neurons() Neurons { return Neurons{Ens: e} }

// Neurons is a terminal addressing an ensemble's individual neurons: as a
// source it carries raw activity, as a destination it injects current.
type Neurons struct {
	Ens *Ensemble
}

func (n Neurons) ObjectName() string { return n.Ens.name + ".neurons" }

// Terminal is a connection endpoint: an *Ensemble (decoded value / input
// current), a *Node, or a Neurons view.
type Terminal interface {
	ObjectName() string
}

// EnsembleOption configures optional Ensemble attributes at declaration.
type EnsembleOption func(*Ensemble)

// WithRadius sets the expected magnitude of the represented vector.
func WithRadius(r float64) EnsembleOption {
	return func(e *Ensemble) { e.Radius = r }
}

// WithEncoders supplies explicit encoders instead of random unit vectors.
func WithEncoders(enc [][]float64) EnsembleOption {
	return func(e *Ensemble) { e.Encoders = num.CloneMat(enc) }
}

// WithMaxRates supplies explicit per-neuron maximum firing rates.
func WithMaxRates(rates []float64) EnsembleOption {
	return func(e *Ensemble) { e.MaxRates = append([]float64(nil), rates...) }
}

// WithIntercepts supplies explicit per-neuron tuning-curve intercepts.
func WithIntercepts(ic []float64) EnsembleOption {
	return func(e *Ensemble) { e.Intercepts = append([]float64(nil), ic...) }
}

// WithEvalPoints supplies explicit decoder evaluation points.
func WithEvalPoints(points [][]float64) EnsembleOption {
	return func(e *Ensemble) { e.EvalPoints = num.CloneMat(points) }
}

func validateEnsemble(e *Ensemble) error {
	if e.NNeurons <= 0 {
		return fmt.Errorf("ensemble %q: neuron count %d: %w", e.name, e.NNeurons, ErrInvalidParameter)
	}
	if e.Dimensions <= 0 {
		return fmt.Errorf("ensemble %q: dimensions %d: %w", e.name, e.Dimensions, ErrInvalidParameter)
	}
	if e.Radius <= 0 {
		return fmt.Errorf("ensemble %q: radius %g: %w", e.name, e.Radius, ErrInvalidParameter)
	}
	if e.Encoders != nil {
		if len(e.Encoders) != e.NNeurons || !num.Rectangular(e.Encoders, e.Dimensions) {
			return fmt.Errorf("ensemble %q: encoders must be %dx%d: %w",
				e.name, e.NNeurons, e.Dimensions, ErrShapeMismatch)
		}
		for i, row := range e.Encoders {
			norm := num.Norm(row)
			if norm == 0 {
				return fmt.Errorf("ensemble %q: encoder row %d is zero: %w", e.name, i, ErrInvalidParameter)
			}
			for j := range row {
				row[j] /= norm
			}
		}
	}
	if e.MaxRates != nil && len(e.MaxRates) != e.NNeurons {
		return fmt.Errorf("ensemble %q: %d max rates for %d neurons: %w",
			e.name, len(e.MaxRates), e.NNeurons, ErrShapeMismatch)
	}
	if e.Intercepts != nil && len(e.Intercepts) != e.NNeurons {
		return fmt.Errorf("ensemble %q: %d intercepts for %d neurons: %w",
			e.name, len(e.Intercepts), e.NNeurons, ErrShapeMismatch)
	}
	if e.EvalPoints != nil && !num.Rectangular(e.EvalPoints, e.Dimensions) {
		return fmt.Errorf("ensemble %q: eval points must have %d columns: %w",
			e.name, e.Dimensions, ErrShapeMismatch)
	}
	return nil
}

func defaultRadius() float64 { return constants.DefaultRadius }
