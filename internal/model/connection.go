package model

import (
	"fmt"

	"github.com/hunse/nengo/internal/num"
)

// Connection is a directed edge from a source terminal to a destination
// terminal. It is declared once and compiled into a fixed weight operator at
// build time; transform shapes are fully validated there, once pre and post
// dimensionalities are resolved.
type Connection struct {
	name string

	Pre  Terminal
	Post Terminal

	// Transform is the post-dims × pre-dims weight matrix; nil means
	// identity.
	Transform [][]float64

	// Function, when set, is applied to the decoded pre-value before the
	// transform. Setting it triggers a dedicated decoder solve for the
	// source ensemble.
	Function func(x []float64) []float64

	// Decoders optionally supplies explicit decoders for a raw-neuron
	// source, pre-neurons × decoded-dims.
	Decoders [][]float64

	// Filter is the synaptic low-pass time constant τ in seconds; 0 means
	// direct pass-through.
	Filter float64
}

func (c *Connection) ObjectName() string { return c.name }

// ConnectionOption configures optional Connection attributes.
type ConnectionOption func(*Connection)

// WithTransform sets the post-dims × pre-dims weight matrix.
func WithTransform(t [][]float64) ConnectionOption {
	return func(c *Connection) { c.Transform = num.CloneMat(t) }
}

// WithWeight sets a 1×1 transform, for scalar connections.
func WithWeight(w float64) ConnectionOption {
	return func(c *Connection) { c.Transform = [][]float64{{w}} }
}

// WithFunction applies fn to the decoded source value before the transform.
func WithFunction(fn func(x []float64) []float64) ConnectionOption {
	return func(c *Connection) { c.Function = fn }
}

// WithDecoders supplies explicit decoders for a raw-neuron source.
func WithDecoders(d [][]float64) ConnectionOption {
	return func(c *Connection) { c.Decoders = num.CloneMat(d) }
}

// WithFilter sets the synaptic time constant in seconds.
func WithFilter(tau float64) ConnectionOption {
	return func(c *Connection) { c.Filter = tau }
}

func validateConnection(c *Connection) error {
	if c.Pre == nil || c.Post == nil {
		return fmt.Errorf("connection %q: nil endpoint: %w", c.name, ErrUnresolved)
	}
	if c.Filter < 0 {
		return fmt.Errorf("connection %q: filter %g: %w", c.name, c.Filter, ErrInvalidParameter)
	}
	if c.Transform != nil {
		if len(c.Transform) == 0 || len(c.Transform[0]) == 0 || !num.Rectangular(c.Transform, len(c.Transform[0])) {
			return fmt.Errorf("connection %q: ragged or empty transform: %w", c.name, ErrShapeMismatch)
		}
	}
	if c.Function != nil {
		if _, ok := c.Pre.(*Ensemble); !ok {
			return fmt.Errorf("connection %q: function requires a decoded ensemble source: %w",
				c.name, ErrInvalidParameter)
		}
	}
	if c.Decoders != nil {
		if _, ok := c.Pre.(Neurons); !ok {
			return fmt.Errorf("connection %q: explicit decoders require a raw-neuron source: %w",
				c.name, ErrInvalidParameter)
		}
	}
	return nil
}
