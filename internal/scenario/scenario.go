// Package scenario loads declarative experiment definitions from YAML and
// builds runnable models from them. A scenario names its input nodes,
// ensembles, connections, and probes; running it produces the recorded
// probe data for export or storage.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hunse/nengo/internal/model"
)

// Spec is the YAML scenario document.
type Spec struct {
	// Name identifies the scenario in exports and run records.
	Name string `yaml:"name"`

	// Seed drives all parameter draws. The same spec and seed always
	// produce the same results.
	Seed int64 `yaml:"seed"`

	// DT is the step size in seconds. 0 uses the default.
	DT float64 `yaml:"dt,omitempty"`

	// Duration is the simulated time in seconds.
	Duration float64 `yaml:"duration"`

	Nodes       []NodeSpec       `yaml:"nodes,omitempty"`
	Ensembles   []EnsembleSpec   `yaml:"ensembles,omitempty"`
	Connections []ConnectionSpec `yaml:"connections,omitempty"`
	Probes      []ProbeSpec      `yaml:"probes,omitempty"`
}

// NodeSpec defines one input or sink node. Exactly one output field may be
// set; a node with no output is a sink and needs Size.
type NodeSpec struct {
	Name string `yaml:"name"`

	// Constant emits a fixed vector every step.
	Constant *Vector `yaml:"constant,omitempty"`

	// Piecewise maps onset times to the value held from that time on.
	Piecewise map[float64]Vector `yaml:"piecewise,omitempty"`

	// Sine emits amplitude*sin(2*pi*frequency*t + phase).
	Sine *SineSpec `yaml:"sine,omitempty"`

	// WhiteNoise emits a band-limited pseudo-random signal.
	WhiteNoise *WhiteNoiseSpec `yaml:"whitenoise,omitempty"`

	// Size is the sink dimensionality, for nodes with no output.
	Size int `yaml:"size,omitempty"`
}

// SineSpec parameterizes a sinusoid input.
type SineSpec struct {
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Phase     float64 `yaml:"phase,omitempty"`
}

// WhiteNoiseSpec parameterizes a band-limited noise input.
type WhiteNoiseSpec struct {
	// Step is the fundamental frequency in Hz.
	Step float64 `yaml:"step"`

	// High is the highest frequency in Hz.
	High float64 `yaml:"high"`

	// RMS is the root-mean-square amplitude of the signal.
	RMS float64 `yaml:"rms"`

	// Seed draws the component amplitudes and phases. 0 uses the
	// scenario seed.
	Seed int64 `yaml:"seed,omitempty"`

	Dimensions int `yaml:"dimensions,omitempty"`
}

// EnsembleSpec defines one neuron population.
type EnsembleSpec struct {
	Name       string  `yaml:"name"`
	Neurons    int     `yaml:"neurons"`
	Dimensions int     `yaml:"dimensions"`
	Radius     float64 `yaml:"radius,omitempty"`
}

// ConnectionSpec defines one connection between named objects.
type ConnectionSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// Transform is an explicit weight matrix; Weight is shorthand for a
	// scalar transform. At most one may be set.
	Transform [][]float64 `yaml:"transform,omitempty"`
	Weight    *float64    `yaml:"weight,omitempty"`

	// Function names a registered decode function.
	Function string `yaml:"function,omitempty"`

	// Filter is the synaptic time constant in seconds.
	Filter float64 `yaml:"filter,omitempty"`
}

// ProbeSpec defines one recording target. Target is an object name, an
// ensemble name with a ".neurons" suffix, or the builtins "time"/"steps".
type ProbeSpec struct {
	Target      string  `yaml:"target"`
	Filter      float64 `yaml:"filter,omitempty"`
	SampleEvery float64 `yaml:"sample_every,omitempty"`
}

// Vector is a float vector that also unmarshals from a bare YAML scalar.
type Vector []float64

// UnmarshalYAML accepts `0.5` and `[0.5, -1]` interchangeably.
func (v *Vector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Vector{f}
		return nil
	}
	var vals []float64
	if err := node.Decode(&vals); err != nil {
		return err
	}
	*v = vals
	return nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario document and checks it for basic consistency.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario: name is required")
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %q: duration must be positive, got %g", s.Name, s.Duration)
	}
	for _, n := range s.Nodes {
		outputs := 0
		if n.Constant != nil {
			outputs++
		}
		if len(n.Piecewise) > 0 {
			outputs++
		}
		if n.Sine != nil {
			outputs++
		}
		if n.WhiteNoise != nil {
			outputs++
		}
		if outputs > 1 {
			return fmt.Errorf("scenario %q: node %q sets multiple outputs", s.Name, n.Name)
		}
		if outputs == 0 && n.Size <= 0 {
			return fmt.Errorf("scenario %q: sink node %q needs a size", s.Name, n.Name)
		}
	}
	for i, c := range s.Connections {
		if c.From == "" || c.To == "" {
			return fmt.Errorf("scenario %q: connection %d needs from and to", s.Name, i)
		}
		if c.Transform != nil && c.Weight != nil {
			return fmt.Errorf("scenario %q: connection %s->%s sets both transform and weight", s.Name, c.From, c.To)
		}
	}
	for i, p := range s.Probes {
		if p.Target == "" {
			return fmt.Errorf("scenario %q: probe %d needs a target", s.Name, i)
		}
	}
	return nil
}

// Built pairs a compiled model with the probe handles the spec declared, in
// declaration order.
type Built struct {
	Model  *model.Model
	Probes []BuiltProbe
}

// BuiltProbe is a declared probe and its target label.
type BuiltProbe struct {
	Target string
	Probe  *model.Probe
}

// Build constructs the declarative model the spec describes.
func (s *Spec) Build() (*Built, error) {
	opts := []model.Option{model.WithSeed(s.Seed)}
	if s.DT > 0 {
		opts = append(opts, model.WithDT(s.DT))
	}
	m := model.New(s.Name, opts...)

	for _, ns := range s.Nodes {
		out, err := s.nodeOutput(ns)
		if err != nil {
			return nil, err
		}
		if out == nil {
			if _, err := m.Sink(ns.Name, ns.Size); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
			}
			continue
		}
		if _, err := m.Node(ns.Name, out); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	for _, es := range s.Ensembles {
		var opts []model.EnsembleOption
		if es.Radius > 0 {
			opts = append(opts, model.WithRadius(es.Radius))
		}
		if _, err := m.Ensemble(es.Name, es.Neurons, es.Dimensions, opts...); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	for _, cs := range s.Connections {
		pre, err := s.terminal(m, cs.From)
		if err != nil {
			return nil, err
		}
		post, err := s.terminal(m, cs.To)
		if err != nil {
			return nil, err
		}
		var opts []model.ConnectionOption
		if cs.Transform != nil {
			opts = append(opts, model.WithTransform(cs.Transform))
		}
		if cs.Weight != nil {
			opts = append(opts, model.WithWeight(*cs.Weight))
		}
		if cs.Function != "" {
			fn, ok := LookupFunction(cs.Function)
			if !ok {
				return nil, fmt.Errorf("scenario %q: connection %s->%s: unknown function %q",
					s.Name, cs.From, cs.To, cs.Function)
			}
			opts = append(opts, model.WithFunction(fn))
		}
		if cs.Filter > 0 {
			opts = append(opts, model.WithFilter(cs.Filter))
		}
		if _, err := m.Connect(pre, post, opts...); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	probes := make([]BuiltProbe, 0, len(s.Probes))
	for _, ps := range s.Probes {
		target, err := s.probeTarget(m, ps.Target)
		if err != nil {
			return nil, err
		}
		var opts []model.ProbeOption
		if ps.Filter > 0 {
			opts = append(opts, model.WithProbeFilter(ps.Filter))
		}
		if ps.SampleEvery > 0 {
			opts = append(opts, model.WithSampleEvery(ps.SampleEvery))
		}
		p, err := m.Probe(target, opts...)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		probes = append(probes, BuiltProbe{Target: ps.Target, Probe: p})
	}

	return &Built{Model: m, Probes: probes}, nil
}

// nodeOutput builds the output for a node spec, or nil for a sink.
func (s *Spec) nodeOutput(ns NodeSpec) (model.Output, error) {
	switch {
	case ns.Constant != nil:
		return model.Constant(*ns.Constant), nil
	case len(ns.Piecewise) > 0:
		pw, err := NewPiecewise(ns.Piecewise)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: node %q: %w", s.Name, ns.Name, err)
		}
		return model.TimeFunction(pw.Eval), nil
	case ns.Sine != nil:
		return model.TimeFunction(Sine(*ns.Sine)), nil
	case ns.WhiteNoise != nil:
		w := *ns.WhiteNoise
		if w.Seed == 0 {
			w.Seed = s.Seed
		}
		wn, err := NewWhiteNoise(w)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: node %q: %w", s.Name, ns.Name, err)
		}
		return model.TimeFunction(wn.Eval), nil
	default:
		return nil, nil
	}
}

// terminal resolves a connection endpoint name, honoring the ".neurons"
// suffix for raw neuron access.
func (s *Spec) terminal(m *model.Model, name string) (model.Terminal, error) {
	if base, ok := strings.CutSuffix(name, ".neurons"); ok {
		obj := m.Get(model.ByName(base))
		ens, isEns := obj.(*model.Ensemble)
		if !isEns {
			return nil, fmt.Errorf("scenario %q: %q is not an ensemble", s.Name, base)
		}
		return ens.Neurons(), nil
	}
	obj := m.Get(model.ByName(name))
	if obj == nil {
		return nil, fmt.Errorf("scenario %q: no object named %q", s.Name, name)
	}
	term, ok := obj.(model.Terminal)
	if !ok {
		return nil, fmt.Errorf("scenario %q: %q cannot be a connection endpoint", s.Name, name)
	}
	return term, nil
}

// probeTarget resolves a probe target name, including the builtins.
func (s *Spec) probeTarget(m *model.Model, name string) (model.Object, error) {
	switch name {
	case "time":
		return model.TimeSignal, nil
	case "steps":
		return model.StepSignal, nil
	}
	if base, ok := strings.CutSuffix(name, ".neurons"); ok {
		obj := m.Get(model.ByName(base))
		ens, isEns := obj.(*model.Ensemble)
		if !isEns {
			return nil, fmt.Errorf("scenario %q: %q is not an ensemble", s.Name, base)
		}
		return ens.Neurons(), nil
	}
	obj := m.Get(model.ByName(name))
	if obj == nil {
		return nil, fmt.Errorf("scenario %q: no probe target named %q", s.Name, name)
	}
	return obj, nil
}

// SampleOnsets returns a piecewise spec's onset times in order, mainly for
// diagnostics.
func SampleOnsets(pw map[float64]Vector) []float64 {
	onsets := make([]float64, 0, len(pw))
	for t := range pw {
		onsets = append(onsets, t)
	}
	sort.Float64s(onsets)
	return onsets
}
