// Package sim compiles a declarative model into a concrete signal registry
// and operator state, then executes it one discrete step at a time. The
// compiled simulator is a distinct artifact from the declarative model:
// rebuilding the same model with the same seed reproduces it exactly.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/hunse/nengo/internal/model"
	"github.com/hunse/nengo/internal/num"
)

// Simulator is a compiled, runnable model instance. It owns its signal
// registry exclusively; no state is shared across instances.
type Simulator struct {
	dt float64
	n  int // completed steps

	reg     *Registry
	timeSig *Signal
	stepSig *Signal

	nodes  []*builtNode
	ens    []*builtEnsemble
	conns  []*builtConn
	probes []*builtProbe

	ensByDecl map[*model.Ensemble]*builtEnsemble

	logger *slog.Logger
}

// Option configures a Simulator at build time.
type Option func(*Simulator)

// WithDT overrides the model's step size, in seconds.
func WithDT(dt float64) Option {
	return func(s *Simulator) { s.dt = dt }
}

// WithLogger attaches a logger for build and run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// New compiles m into a runnable simulator. Build failures abort with a
// diagnostic identifying the offending object; no partial build is
// retained.
func New(m *model.Model, opts ...Option) (*Simulator, error) {
	s := &Simulator{
		dt:  m.DT,
		reg: NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dt <= 0 {
		return nil, fmt.Errorf("model %q: dt %g: %w", m.Name, s.dt, model.ErrInvalidParameter)
	}
	if err := s.build(m); err != nil {
		return nil, fmt.Errorf("build %q: %w", m.Name, err)
	}
	if s.logger != nil {
		s.logger.Debug("model built",
			"model", m.Name,
			"seed", m.Seed,
			"dt", s.dt,
			"ensembles", len(s.ens),
			"nodes", len(s.nodes),
			"connections", len(s.conns),
			"probes", len(s.probes),
			"signals", s.reg.Len())
	}
	return s, nil
}

// DT returns the step size in seconds.
func (s *Simulator) DT() float64 { return s.dt }

// Steps returns the number of completed steps.
func (s *Simulator) Steps() int { return s.n }

// Time returns the elapsed simulation time in seconds.
func (s *Simulator) Time() float64 { return float64(s.n) * s.dt }

// Registry exposes the compiled signal registry, mainly for inspection.
func (s *Simulator) Registry() *Registry { return s.reg }

// Run advances the simulation by ceil(seconds/dt) steps. Calling Run again
// resumes from the already-advanced state.
func (s *Simulator) Run(seconds float64) {
	s.RunSteps(int(math.Ceil(seconds/s.dt - 1e-9)))
}

// RunSteps advances the simulation by n discrete steps.
func (s *Simulator) RunSteps(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
	if s.logger != nil {
		s.logger.Debug("run complete", "steps", s.n, "time", s.Time())
	}
}

// Step executes one discrete time step in the fixed order: node outputs,
// input gathering from previous-step filtered values, neuron advance and
// decode, synaptic filtering, clock increment, probe feeding.
func (s *Simulator) Step() {
	step := s.n
	t := float64(step) * s.dt
	s.timeSig.Values[0] = t
	s.stepSig.Values[0] = float64(step)

	// 1. Evaluate node outputs at the current time.
	for _, bn := range s.nodes {
		switch out := bn.node.Output.(type) {
		case model.Constant:
			copy(bn.out.Values, out)
		case model.TimeFunction:
			copy(bn.out.Values, out(t))
		}
	}

	// 2. Gather inputs. Connection outputs still hold last step's filtered
	// values, so every destination sees exactly one step of latency.
	for _, bn := range s.nodes {
		if bn.node.Output != nil {
			continue
		}
		sum(bn.out.Values, bn.inbound)
	}
	for _, be := range s.ens {
		sum(be.in.Values, be.inbound)
		for i, enc := range be.params.ScaledEncoders {
			be.current[i] = num.Dot(enc, be.in.Values) + be.params.Bias[i]
		}
		for _, bc := range be.inboundNeurons {
			for i, v := range bc.out.Values {
				be.current[i] += v
			}
		}
	}

	// 3. Advance neuron state and decode the new activity.
	for _, be := range s.ens {
		be.lif.Step(be.state, be.current, s.dt, be.activity.Values)
		for j := range be.decoded.Values {
			var v float64
			for i, a := range be.activity.Values {
				v += a * be.params.Decoders[i][j]
			}
			be.decoded.Values[j] = v
		}
	}

	// 4. Apply each connection's weights and synaptic filter, producing the
	// values destinations will read next step.
	for _, bc := range s.conns {
		num.MatVec(bc.weights, bc.src.Values, bc.raw)
		lowpass(bc.out.Values, bc.raw, bc.tau, s.dt)
	}

	// 5. Advance the clock.
	s.n++

	// 6. Feed probes.
	for _, bp := range s.probes {
		lowpass(bp.filtered, bp.src.Values, bp.probe.Filter, s.dt)
		if step%bp.every == 0 {
			bp.times = append(bp.times, t)
			bp.rows = append(bp.rows, append([]float64(nil), bp.filtered...))
		}
	}
}

// sum zeroes dst and accumulates the output of each inbound connection.
func sum(dst []float64, inbound []*builtConn) {
	for i := range dst {
		dst[i] = 0
	}
	for _, bc := range inbound {
		for i, v := range bc.out.Values {
			dst[i] += v
		}
	}
}

// lowpass applies a first-order filter with time constant tau to src,
// accumulating into dst. tau == 0 copies directly.
func lowpass(dst, src []float64, tau, dt float64) {
	if tau <= 0 {
		copy(dst, src)
		return
	}
	alpha := dt / tau
	if alpha > 1 {
		alpha = 1
	}
	for i := range dst {
		dst[i] += alpha * (src[i] - dst[i])
	}
}

// Data returns the samples recorded by p, one row per sample.
func (s *Simulator) Data(p *model.Probe) [][]float64 {
	for _, bp := range s.probes {
		if bp.probe == p {
			return num.CloneMat(bp.rows)
		}
	}
	return nil
}

// SampleTimes returns the simulation times of p's recorded samples.
func (s *Simulator) SampleTimes(p *model.Probe) []float64 {
	for _, bp := range s.probes {
		if bp.probe == p {
			return append([]float64(nil), bp.times...)
		}
	}
	return nil
}

// Params returns the parameters materialized for e at build time.
func (s *Simulator) Params(e *model.Ensemble) (*EnsembleParams, bool) {
	be, ok := s.ensByDecl[e]
	if !ok {
		return nil, false
	}
	return be.params, true
}

// TuningCurves returns e's eval points and the static activity of each
// neuron at those points. One-dimensional ensembles are sorted by the
// represented value for plotting.
func (s *Simulator) TuningCurves(e *model.Ensemble) (points, activities [][]float64, err error) {
	be, ok := s.ensByDecl[e]
	if !ok {
		return nil, nil, fmt.Errorf("ensemble %q not in model: %w", e.ObjectName(), model.ErrUnresolved)
	}

	points = num.CloneMat(be.params.EvalPoints)
	if e.Dimensions == 1 {
		sort.Slice(points, func(i, j int) bool { return points[i][0] < points[j][0] })
	}

	activities = make([][]float64, len(points))
	current := make([]float64, be.lif.N)
	for i, pt := range points {
		for j, enc := range be.params.ScaledEncoders {
			current[j] = num.Dot(enc, pt) + be.params.Bias[j]
		}
		activities[i] = be.lif.Rates(current)
	}
	return points, activities, nil
}
