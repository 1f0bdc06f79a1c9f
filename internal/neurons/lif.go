// Package neurons implements the leaky integrate-and-fire population model.
// A LIF value describes a whole population: shared time constants plus
// per-neuron gain and bias. The static rate curve is used for decoder
// fitting; the spiking Step advances membrane state during simulation.
package neurons

import (
	"fmt"
	"math"

	"github.com/hunse/nengo/internal/constants"
)

// LIF is a population of leaky integrate-and-fire neurons.
type LIF struct {
	// N is the number of neurons in the population.
	N int

	// TauRC is the membrane RC time constant in seconds.
	TauRC float64

	// TauRef is the absolute refractory period in seconds.
	TauRef float64

	// Gain and Bias shape each neuron's response. Both have length N once
	// SetGainBias has been called.
	Gain []float64
	Bias []float64
}

// NewLIF creates a LIF population with default time constants. Gain and bias
// are unset until SetGainBias.
func NewLIF(n int) (*LIF, error) {
	if n <= 0 {
		return nil, fmt.Errorf("lif: population size must be positive, got %d", n)
	}
	return &LIF{
		N:      n,
		TauRC:  constants.DefaultTauRC,
		TauRef: constants.DefaultTauRef,
	}, nil
}

// SetGainBias derives per-neuron gain and bias so that neuron i fires at
// maxRates[i] when driven at the edge of the represented range and goes
// silent at intercepts[i]. This inverts the steady-state rate curve.
func (l *LIF) SetGainBias(maxRates, intercepts []float64) error {
	if len(maxRates) != l.N || len(intercepts) != l.N {
		return fmt.Errorf("lif: need %d max rates and intercepts, got %d and %d",
			l.N, len(maxRates), len(intercepts))
	}
	l.Gain = make([]float64, l.N)
	l.Bias = make([]float64, l.N)
	for i := 0; i < l.N; i++ {
		if maxRates[i] <= 0 {
			return fmt.Errorf("lif: max rate must be positive, got %g for neuron %d", maxRates[i], i)
		}
		if intercepts[i] >= 1 {
			return fmt.Errorf("lif: intercept must be below 1, got %g for neuron %d", intercepts[i], i)
		}
		// Current needed to fire at maxRates[i].
		x := 1.0 / (1.0 - math.Exp((l.TauRef-1.0/maxRates[i])/l.TauRC))
		l.Gain[i] = (1.0 - x) / (intercepts[i] - 1.0)
		l.Bias[i] = 1.0 - l.Gain[i]*intercepts[i]
	}
	return nil
}

// Current folds per-neuron heterogeneity into drive: out[i] = Gain[i]*drive[i] + Bias[i].
// drive[i] is the dot product of neuron i's encoder with the represented value.
func (l *LIF) Current(drive, out []float64) {
	for i := range out {
		out[i] = l.Gain[i]*drive[i] + l.Bias[i]
	}
}

// Rates returns the steady-state firing rate for each input current. This is
// the static, non-spiking approximation used for decoder fitting. Currents
// at or below the firing threshold of 1 yield zero.
func (l *LIF) Rates(current []float64) []float64 {
	out := make([]float64, len(current))
	for i, j := range current {
		if j > 1 {
			out[i] = 1.0 / (l.TauRef + l.TauRC*math.Log1p(1.0/(j-1.0)))
		}
	}
	return out
}

// State holds the per-neuron membrane state advanced by Step.
type State struct {
	// Voltage is the membrane potential, in units of the firing threshold.
	Voltage []float64

	// Refractory is the remaining refractory time per neuron, in seconds.
	Refractory []float64
}

// NewState returns a zeroed membrane state for the population.
func (l *LIF) NewState() *State {
	return &State{
		Voltage:    make([]float64, l.N),
		Refractory: make([]float64, l.N),
	}
}

// Step advances the membrane state by one Euler step of size dt under the
// given input currents. out[i] receives 1/dt when neuron i spikes this step
// and 0 otherwise, so the output is an instantaneous rate estimate.
//
// The refractory period is tracked at sub-step resolution: a spiking
// neuron's threshold crossing is placed inside the step by linear
// interpolation, and the following steps integrate only over their
// non-refractory fraction. This keeps empirical spiking rates aligned with
// the static Rates curve the decoders are fit against.
func (l *LIF) Step(s *State, current []float64, dt float64, out []float64) {
	for i := 0; i < l.N; i++ {
		dV := (dt / l.TauRC) * (current[i] - s.Voltage[i])
		v := s.Voltage[i] + dV
		if v < 0 {
			v = 0
		}

		// Fraction of this step spent outside the refractory period.
		frac := 1.0 - (s.Refractory[i]-dt)/dt
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}
		v *= frac

		if v > 1 {
			// Time of the threshold crossing within the step; the
			// refractory period starts there, not at the step boundary.
			spiketime := dt * (1.0 - (v-1.0)/dV)
			out[i] = 1.0 / dt
			s.Voltage[i] = 0
			s.Refractory[i] = spiketime + l.TauRef
		} else {
			out[i] = 0
			s.Voltage[i] = v
			s.Refractory[i] -= dt
			if s.Refractory[i] < 0 {
				s.Refractory[i] = 0
			}
		}
	}
}
