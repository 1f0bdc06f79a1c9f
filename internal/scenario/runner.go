package scenario

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hunse/nengo/internal/sim"
)

// Result holds everything a finished run produced.
type Result struct {
	Name     string
	Seed     int64
	DT       float64
	Duration float64
	Steps    int
	Elapsed  time.Duration

	Probes []ProbeResult
}

// ProbeResult is the recorded data of one probe.
type ProbeResult struct {
	Target string
	Times  []float64
	Data   [][]float64
}

// RunOption configures a scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger attaches a logger to the build and run.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = logger }
}

// Run builds the scenario's model, simulates it for the configured
// duration, and collects all probe data.
func Run(spec *Spec, opts ...RunOption) (*Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	built, err := spec.Build()
	if err != nil {
		return nil, err
	}

	var simOpts []sim.Option
	if cfg.logger != nil {
		simOpts = append(simOpts, sim.WithLogger(cfg.logger))
	}
	s, err := sim.New(built.Model, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
	}

	start := time.Now()
	s.Run(spec.Duration)
	elapsed := time.Since(start)

	if cfg.logger != nil {
		cfg.logger.Info("scenario complete",
			"scenario", spec.Name,
			"steps", s.Steps(),
			"elapsed", elapsed)
	}

	res := &Result{
		Name:     spec.Name,
		Seed:     spec.Seed,
		DT:       s.DT(),
		Duration: spec.Duration,
		Steps:    s.Steps(),
		Elapsed:  elapsed,
	}
	for _, bp := range built.Probes {
		res.Probes = append(res.Probes, ProbeResult{
			Target: bp.Target,
			Times:  s.SampleTimes(bp.Probe),
			Data:   s.Data(bp.Probe),
		})
	}
	return res, nil
}
