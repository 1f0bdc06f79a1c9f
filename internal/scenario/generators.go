package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Piecewise holds a value from each onset time until the next. Before the
// first onset it emits zeros.
type Piecewise struct {
	onsets []float64
	values [][]float64
	dims   int
}

// NewPiecewise builds a piecewise signal from onset->value pairs. All values
// must share one dimensionality.
func NewPiecewise(segments map[float64]Vector) (*Piecewise, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("piecewise: no segments")
	}
	pw := &Piecewise{}
	for t := range segments {
		pw.onsets = append(pw.onsets, t)
	}
	sort.Float64s(pw.onsets)

	pw.dims = len(segments[pw.onsets[0]])
	if pw.dims == 0 {
		return nil, fmt.Errorf("piecewise: empty value at t=%g", pw.onsets[0])
	}
	for _, t := range pw.onsets {
		v := segments[t]
		if len(v) != pw.dims {
			return nil, fmt.Errorf("piecewise: value at t=%g has %d dims, want %d", t, len(v), pw.dims)
		}
		pw.values = append(pw.values, append([]float64(nil), v...))
	}
	return pw, nil
}

// Dims returns the signal dimensionality.
func (p *Piecewise) Dims() int { return p.dims }

// Eval returns the value in effect at time t.
func (p *Piecewise) Eval(t float64) []float64 {
	// Index of the last onset <= t.
	i := sort.SearchFloat64s(p.onsets, t)
	if i < len(p.onsets) && p.onsets[i] == t {
		return p.values[i]
	}
	if i == 0 {
		return make([]float64, p.dims)
	}
	return p.values[i-1]
}

// Sine returns a sinusoid generator. Zero amplitude defaults to 1.
func Sine(spec SineSpec) func(t float64) []float64 {
	amp := spec.Amplitude
	if amp == 0 {
		amp = 1
	}
	omega := 2 * math.Pi * spec.Frequency
	return func(t float64) []float64 {
		return []float64{amp * math.Sin(omega*t + spec.Phase)}
	}
}

// WhiteNoise is a band-limited noise signal: a sum of sinusoids at
// multiples of a fundamental frequency up to a cutoff, with random
// amplitudes and phases, normalized to a target RMS. The same seed always
// produces the same signal.
type WhiteNoise struct {
	dims   int
	freqs  []float64
	amps   [][]float64 // dims x freqs
	phases [][]float64
}

// NewWhiteNoise draws the component amplitudes and phases for the spec.
func NewWhiteNoise(spec WhiteNoiseSpec) (*WhiteNoise, error) {
	if spec.Step <= 0 {
		return nil, fmt.Errorf("whitenoise: step must be positive, got %g", spec.Step)
	}
	if spec.High < spec.Step {
		return nil, fmt.Errorf("whitenoise: high %g below step %g", spec.High, spec.Step)
	}
	if spec.RMS <= 0 {
		return nil, fmt.Errorf("whitenoise: rms must be positive, got %g", spec.RMS)
	}
	dims := spec.Dimensions
	if dims == 0 {
		dims = 1
	}

	w := &WhiteNoise{dims: dims}
	for f := spec.Step; f <= spec.High+1e-9; f += spec.Step {
		w.freqs = append(w.freqs, f)
	}

	rng := rand.New(rand.NewSource(spec.Seed))
	w.amps = make([][]float64, dims)
	w.phases = make([][]float64, dims)
	for d := 0; d < dims; d++ {
		amps := make([]float64, len(w.freqs))
		phases := make([]float64, len(w.freqs))
		var power float64
		for i := range w.freqs {
			amps[i] = rng.NormFloat64()
			phases[i] = 2 * math.Pi * rng.Float64()
			power += amps[i] * amps[i] / 2
		}
		// Scale so the time-domain RMS matches spec.RMS.
		scale := spec.RMS / math.Sqrt(power)
		for i := range amps {
			amps[i] *= scale
		}
		w.amps[d] = amps
		w.phases[d] = phases
	}
	return w, nil
}

// Dims returns the signal dimensionality.
func (w *WhiteNoise) Dims() int { return w.dims }

// Eval returns the signal value at time t.
func (w *WhiteNoise) Eval(t float64) []float64 {
	out := make([]float64, w.dims)
	for d := 0; d < w.dims; d++ {
		var v float64
		for i, f := range w.freqs {
			v += w.amps[d][i] * math.Sin(2*math.Pi*f*t+w.phases[d][i])
		}
		out[d] = v
	}
	return out
}
