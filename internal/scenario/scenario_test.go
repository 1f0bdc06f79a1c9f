package scenario

import (
	"math"
	"reflect"
	"testing"
)

const integratorYAML = `
name: integrator
seed: 1
duration: 2.0
nodes:
  - name: in
    piecewise:
      0: 0
      0.2: 1
      1: 0
ensembles:
  - name: a
    neurons: 100
    dimensions: 1
connections:
  - from: a
    to: a
    filter: 0.1
  - from: in
    to: a
    weight: 0.1
    filter: 0.1
probes:
  - target: a
    filter: 0.02
`

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(integratorYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Name != "integrator" || spec.Seed != 1 || spec.Duration != 2.0 {
		t.Errorf("header = %q/%d/%g", spec.Name, spec.Seed, spec.Duration)
	}
	if len(spec.Nodes) != 1 || len(spec.Ensembles) != 1 || len(spec.Connections) != 2 || len(spec.Probes) != 1 {
		t.Fatalf("counts: nodes=%d ensembles=%d connections=%d probes=%d",
			len(spec.Nodes), len(spec.Ensembles), len(spec.Connections), len(spec.Probes))
	}
	if w := spec.Connections[1].Weight; w == nil || *w != 0.1 {
		t.Errorf("input weight = %v, want 0.1", w)
	}
	pw := spec.Nodes[0].Piecewise
	if got := pw[0.2]; !reflect.DeepEqual(got, Vector{1}) {
		t.Errorf("piecewise[0.2] = %v, want [1]", got)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "duration: 1\n"},
		{"zero duration", "name: x\n"},
		{"multiple outputs", "name: x\nduration: 1\nnodes:\n  - name: n\n    constant: 1\n    sine: {frequency: 1}\n"},
		{"sink without size", "name: x\nduration: 1\nnodes:\n  - name: n\n"},
		{"connection missing endpoint", "name: x\nduration: 1\nconnections:\n  - from: a\n"},
		{"transform and weight", "name: x\nduration: 1\nconnections:\n  - from: a\n    to: b\n    weight: 1\n    transform: [[1]]\n"},
		{"probe missing target", "name: x\nduration: 1\nprobes:\n  - filter: 0.01\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestVectorScalarOrList(t *testing.T) {
	spec, err := Parse([]byte("name: x\nduration: 1\nnodes:\n  - name: n\n    constant: [0.5, -1]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := *spec.Nodes[0].Constant; !reflect.DeepEqual(got, Vector{0.5, -1}) {
		t.Errorf("constant = %v, want [0.5 -1]", got)
	}
}

func TestPiecewise(t *testing.T) {
	pw, err := NewPiecewise(map[float64]Vector{0.2: {1}, 1: {0}, 2: {-2}})
	if err != nil {
		t.Fatalf("piecewise: %v", err)
	}
	cases := []struct {
		t    float64
		want float64
	}{
		{0, 0},     // before first onset
		{0.1, 0},
		{0.2, 1},   // exactly at onset
		{0.9, 1},
		{1.0, 0},
		{1.5, 0},
		{2.0, -2},
		{5.0, -2},  // held past the last onset
	}
	for _, tc := range cases {
		if got := pw.Eval(tc.t)[0]; got != tc.want {
			t.Errorf("Eval(%g) = %g, want %g", tc.t, got, tc.want)
		}
	}
}

func TestPiecewiseDimMismatch(t *testing.T) {
	if _, err := NewPiecewise(map[float64]Vector{0: {1}, 1: {1, 2}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestSine(t *testing.T) {
	fn := Sine(SineSpec{Frequency: 1, Amplitude: 2})
	if got := fn(0)[0]; math.Abs(got) > 1e-12 {
		t.Errorf("sin at t=0 is %g, want 0", got)
	}
	if got := fn(0.25)[0]; math.Abs(got-2) > 1e-9 {
		t.Errorf("sin at quarter period is %g, want 2", got)
	}
}

func TestWhiteNoise(t *testing.T) {
	spec := WhiteNoiseSpec{Step: 1, High: 10, RMS: 0.5, Seed: 4}
	a, err := NewWhiteNoise(spec)
	if err != nil {
		t.Fatalf("whitenoise: %v", err)
	}
	b, err := NewWhiteNoise(spec)
	if err != nil {
		t.Fatalf("whitenoise: %v", err)
	}
	if got := a.Eval(0.37); !reflect.DeepEqual(got, b.Eval(0.37)) {
		t.Error("same seed produced different signals")
	}

	// The sampled RMS over a full fundamental period should be close to the
	// requested value.
	var sum float64
	const samples = 1000
	for i := 0; i < samples; i++ {
		v := a.Eval(float64(i) / samples)[0]
		sum += v * v
	}
	rms := math.Sqrt(sum / samples)
	if math.Abs(rms-0.5) > 0.05 {
		t.Errorf("sampled rms = %g, want 0.5 within 0.05", rms)
	}

	if _, err := NewWhiteNoise(WhiteNoiseSpec{Step: 0, High: 1, RMS: 1}); err == nil {
		t.Error("expected error for zero step")
	}
}

func TestFunctionRegistry(t *testing.T) {
	fn, ok := LookupFunction("square")
	if !ok {
		t.Fatal("square not registered")
	}
	if got := fn([]float64{-3})[0]; got != 9 {
		t.Errorf("square(-3) = %g, want 9", got)
	}
	if _, ok := LookupFunction("missing"); ok {
		t.Error("lookup of unregistered name succeeded")
	}

	RegisterFunction("double", func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = 2 * v
		}
		return out
	})
	fn, ok = LookupFunction("double")
	if !ok || fn([]float64{2})[0] != 4 {
		t.Error("registered function not usable")
	}
}

func TestBuildUnknownName(t *testing.T) {
	spec, err := Parse([]byte("name: x\nduration: 1\nconnections:\n  - from: ghost\n    to: ghost\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := spec.Build(); err == nil {
		t.Error("expected build error for unknown endpoint")
	}
}

func TestRunIntegrator(t *testing.T) {
	spec, err := Parse([]byte(integratorYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := Run(spec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Steps != 2000 {
		t.Errorf("steps = %d, want 2000", res.Steps)
	}
	if len(res.Probes) != 1 {
		t.Fatalf("probes = %d, want 1", len(res.Probes))
	}
	pr := res.Probes[0]
	if pr.Target != "a" || len(pr.Times) != 2000 || len(pr.Data) != 2000 {
		t.Fatalf("probe a: %d times, %d rows", len(pr.Times), len(pr.Data))
	}

	// The integrator accumulates 0.8 and then holds it.
	last := pr.Data[len(pr.Data)-1][0]
	if math.Abs(last-0.8) > 0.2 {
		t.Errorf("final value = %g, want 0.8 within 0.2", last)
	}
}

func TestRunDeterminism(t *testing.T) {
	spec, err := Parse([]byte(integratorYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := Run(spec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := Run(spec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(a.Probes[0].Data, b.Probes[0].Data) {
		t.Error("identical scenario runs produced different data")
	}
}
