package model

import "fmt"

// Builtin identifies a model-owned signal that probes may target.
type Builtin string

const (
	// TimeSignal is the elapsed simulation time at the start of each step.
	TimeSignal Builtin = "time"

	// StepSignal is the zero-based step counter.
	StepSignal Builtin = "steps"
)

func (b Builtin) ObjectName() string { return string(b) }

// Probe observes one object's output signal, applying its own optional
// synaptic filter, and records a sample every SampleEvery seconds.
type Probe struct {
	name string

	// Target is a *Ensemble (decoded output), *Node (output value),
	// *Connection (filtered output), Neurons (raw activity), or Builtin.
	Target Object

	// SampleEvery is the sampling period in seconds; 0 records every step.
	SampleEvery float64

	// Filter is the probe's own low-pass time constant in seconds.
	Filter float64
}

func (p *Probe) ObjectName() string { return p.name }

// ProbeOption configures optional Probe attributes.
type ProbeOption func(*Probe)

// WithSampleEvery sets the sampling period in seconds.
func WithSampleEvery(period float64) ProbeOption {
	return func(p *Probe) { p.SampleEvery = period }
}

// WithProbeFilter sets the probe's low-pass time constant in seconds.
func WithProbeFilter(tau float64) ProbeOption {
	return func(p *Probe) { p.Filter = tau }
}

func validateProbe(p *Probe) error {
	if p.Target == nil {
		return fmt.Errorf("probe %q: nil target: %w", p.name, ErrUnresolved)
	}
	if p.SampleEvery < 0 {
		return fmt.Errorf("probe %q: sample period %g: %w", p.name, p.SampleEvery, ErrInvalidParameter)
	}
	if p.Filter < 0 {
		return fmt.Errorf("probe %q: filter %g: %w", p.name, p.Filter, ErrInvalidParameter)
	}
	switch p.Target.(type) {
	case *Ensemble, *Node, *Connection, Neurons, Builtin:
		return nil
	default:
		return fmt.Errorf("probe %q: unsupported target %T: %w", p.name, p.Target, ErrInvalidParameter)
	}
}
