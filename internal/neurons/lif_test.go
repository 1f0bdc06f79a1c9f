package neurons

import (
	"math"
	"testing"
)

func TestNewLIFValidation(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{name: "positive", n: 10, wantErr: false},
		{name: "zero", n: 0, wantErr: true},
		{name: "negative", n: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLIF(tt.n)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLIF(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			}
		})
	}
}

// TestGainBiasInversion checks that SetGainBias inverts the rate curve: a
// neuron driven at its intercept is at the firing threshold, and a neuron
// driven at 1 fires at its max rate.
func TestGainBiasInversion(t *testing.T) {
	l, err := NewLIF(3)
	if err != nil {
		t.Fatal(err)
	}
	maxRates := []float64{200, 300, 400}
	intercepts := []float64{-0.5, 0, 0.5}
	if err := l.SetGainBias(maxRates, intercepts); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < l.N; i++ {
		// At the intercept the current is exactly the threshold.
		j := l.Gain[i]*intercepts[i] + l.Bias[i]
		if math.Abs(j-1.0) > 1e-9 {
			t.Errorf("neuron %d: current at intercept = %v, want 1", i, j)
		}

		// At drive 1 the rate matches the requested max rate.
		current := make([]float64, l.N)
		l.Current([]float64{1, 1, 1}, current)
		rates := l.Rates(current)
		if math.Abs(rates[i]-maxRates[i]) > 1e-6*maxRates[i] {
			t.Errorf("neuron %d: rate at drive 1 = %v, want %v", i, rates[i], maxRates[i])
		}

		// Just below the intercept the rate is zero.
		drive := make([]float64, l.N)
		for k := range drive {
			drive[k] = intercepts[k] - 0.01
		}
		l.Current(drive, current)
		rates = l.Rates(current)
		if rates[i] != 0 {
			t.Errorf("neuron %d: rate below intercept = %v, want 0", i, rates[i])
		}
	}
}

func TestSetGainBiasValidation(t *testing.T) {
	l, _ := NewLIF(2)
	if err := l.SetGainBias([]float64{200}, []float64{0, 0}); err == nil {
		t.Error("expected error for short max rates")
	}
	if err := l.SetGainBias([]float64{200, -1}, []float64{0, 0}); err == nil {
		t.Error("expected error for non-positive max rate")
	}
	if err := l.SetGainBias([]float64{200, 200}, []float64{0, 1}); err == nil {
		t.Error("expected error for intercept at 1")
	}
}

func TestRatesBelowThreshold(t *testing.T) {
	l, _ := NewLIF(4)
	rates := l.Rates([]float64{-5, 0, 0.999, 1})
	for i, r := range rates {
		if r != 0 {
			t.Errorf("rate for subthreshold current %d = %v, want 0", i, r)
		}
	}
}

func TestRatesMonotonic(t *testing.T) {
	l, _ := NewLIF(1)
	prev := 0.0
	for j := 1.01; j < 10; j += 0.5 {
		r := l.Rates([]float64{j})[0]
		if r <= prev {
			t.Fatalf("rate not increasing at current %v: %v <= %v", j, r, prev)
		}
		prev = r
	}
}

// TestStepSpikes drives a single neuron with a constant suprathreshold
// current and checks the spiking behavior: spikes present, scaled by 1/dt,
// voltage never negative, and the empirical rate near the static prediction.
func TestStepSpikes(t *testing.T) {
	l, _ := NewLIF(1)
	l.Gain = []float64{1}
	l.Bias = []float64{0}

	dt := 0.001
	current := []float64{3}
	state := l.NewState()
	out := make([]float64, 1)

	spikes := 0
	steps := 10000
	for i := 0; i < steps; i++ {
		l.Step(state, current, dt, out)
		if out[0] != 0 && math.Abs(out[0]-1.0/dt) > 1e-9 {
			t.Fatalf("spike output = %v, want %v", out[0], 1.0/dt)
		}
		if out[0] != 0 {
			spikes++
		}
		if state.Voltage[0] < 0 {
			t.Fatalf("negative voltage at step %d", i)
		}
	}

	empirical := float64(spikes) / (float64(steps) * dt)
	predicted := l.Rates(current)[0]
	if math.Abs(empirical-predicted) > 0.05*predicted {
		t.Errorf("empirical rate %v too far from predicted %v", empirical, predicted)
	}
}

// TestStepRateMatchesStaticCurve checks the spiking step against the static
// rate curve across drive levels. The decoders are fit to the static curve,
// so a systematic gap here shows up as a gain error on every decoded value.
func TestStepRateMatchesStaticCurve(t *testing.T) {
	l, _ := NewLIF(1)
	l.Gain = []float64{1}
	l.Bias = []float64{0}

	dt := 0.001
	const seconds = 10.0
	steps := int(seconds / dt)

	for _, j := range []float64{1.5, 2, 3, 5, 8} {
		current := []float64{j}
		state := l.NewState()
		out := make([]float64, 1)

		spikes := 0
		for i := 0; i < steps; i++ {
			l.Step(state, current, dt, out)
			if out[0] != 0 {
				spikes++
			}
		}

		empirical := float64(spikes) / seconds
		predicted := l.Rates(current)[0]
		if math.Abs(empirical-predicted) > 0.05*predicted {
			t.Errorf("current %g: empirical rate %.1f vs predicted %.1f (%.1f%% off)",
				j, empirical, predicted, 100*(empirical-predicted)/predicted)
		}
	}
}

func TestStepSubthresholdNeverSpikes(t *testing.T) {
	l, _ := NewLIF(1)
	l.Gain = []float64{1}
	l.Bias = []float64{0}

	dt := 0.001
	state := l.NewState()
	out := make([]float64, 1)
	for i := 0; i < 5000; i++ {
		l.Step(state, []float64{0.9}, dt, out)
		if out[0] != 0 {
			t.Fatalf("subthreshold neuron spiked at step %d", i)
		}
	}
	if state.Voltage[0] > 1 {
		t.Errorf("subthreshold voltage %v exceeded threshold", state.Voltage[0])
	}
}

// TestStepRefractory checks that two spikes are never closer than the
// refractory period.
func TestStepRefractory(t *testing.T) {
	l, _ := NewLIF(1)
	l.Gain = []float64{1}
	l.Bias = []float64{0}

	dt := 0.0005
	state := l.NewState()
	out := make([]float64, 1)
	last := -1
	for i := 0; i < 4000; i++ {
		l.Step(state, []float64{10}, dt, out)
		if out[0] == 0 {
			continue
		}
		if last >= 0 {
			gap := float64(i-last) * dt
			if gap < l.TauRef-1e-9 {
				t.Fatalf("spike gap %v shorter than refractory %v", gap, l.TauRef)
			}
		}
		last = i
	}
	if last < 0 {
		t.Fatal("neuron never spiked")
	}
}
