// Package constants provides named defaults used throughout the simulator.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Simulation timing constants
const (
	// DefaultDT is the discrete simulation step size in seconds.
	DefaultDT = 0.001
)

// LIF neuron model constants
const (
	// DefaultTauRC is the membrane RC time constant in seconds.
	DefaultTauRC = 0.02

	// DefaultTauRef is the absolute refractory period in seconds.
	DefaultTauRef = 0.002
)

// Ensemble parameter sampling constants.
// Max rates and intercepts are drawn uniformly from these ranges when not
// supplied by the caller.
const (
	// MinMaxRate is the lower bound for sampled maximum firing rates (Hz).
	MinMaxRate = 200.0

	// MaxMaxRate is the upper bound for sampled maximum firing rates (Hz).
	MaxMaxRate = 400.0

	// MinIntercept is the lower bound for sampled tuning-curve intercepts.
	MinIntercept = -1.0

	// MaxIntercept is the upper bound for sampled tuning-curve intercepts.
	MaxIntercept = 1.0

	// DefaultRadius is the expected magnitude of a represented vector.
	DefaultRadius = 1.0
)

// Decoder solving constants
const (
	// DefaultEvalPoints is the number of evaluation points sampled per
	// ensemble for decoder fitting when none are supplied.
	DefaultEvalPoints = 500

	// DecoderNoise is the assumed spiking-noise amplitude, as a fraction of
	// the maximum activity. It sets the L2 regularization of the decoder
	// solve.
	DecoderNoise = 0.1
)
