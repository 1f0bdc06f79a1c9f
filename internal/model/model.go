// Package model implements the declarative side of the simulator: a Model
// accumulates Ensembles, Nodes, Connections, and Probes into a graph of
// nested network scopes. It performs shape and parameter validation but no
// numerics; the sim package compiles the graph into a runnable form.
package model

import (
	"fmt"

	"github.com/hunse/nengo/internal/constants"
)

// Network is one scope of declared objects. Objects are always registered to
// the innermost open network, never to its ancestors.
type Network struct {
	name string

	Ensembles   []*Ensemble
	Nodes       []*Node
	Connections []*Connection
	Probes      []*Probe
	Networks    []*Network

	byName map[string]Object
}

func (n *Network) ObjectName() string { return n.name }

// Contains reports whether obj was registered directly in this network
// scope (not in a nested one).
func (n *Network) Contains(obj Object) bool {
	switch o := obj.(type) {
	case *Ensemble:
		for _, e := range n.Ensembles {
			if e == o {
				return true
			}
		}
	case *Node:
		for _, nd := range n.Nodes {
			if nd == o {
				return true
			}
		}
	case *Connection:
		for _, c := range n.Connections {
			if c == o {
				return true
			}
		}
	case *Probe:
		for _, p := range n.Probes {
			if p == o {
				return true
			}
		}
	case *Network:
		for _, sub := range n.Networks {
			if sub == o {
				return true
			}
		}
	}
	return false
}

func (n *Network) register(name string, obj Object) error {
	if _, exists := n.byName[name]; exists {
		return fmt.Errorf("network %q already has object %q: %w", n.name, name, ErrDuplicateName)
	}
	n.byName[name] = obj
	return nil
}

// Model is the top-level declarative container. It owns the network scope
// stack, the model seed, and the step size used by default when building.
type Model struct {
	Name string

	// Seed drives all RNG-dependent construction at build time.
	Seed int64

	// DT is the simulation step size in seconds.
	DT float64

	root  *Network
	stack []*Network

	connSeq  int
	probeSeq int
}

// Option configures a Model at creation.
type Option func(*Model)

// WithSeed fixes the model seed driving all random construction.
func WithSeed(seed int64) Option {
	return func(m *Model) { m.Seed = seed }
}

// WithDT sets the simulation step size in seconds.
func WithDT(dt float64) Option {
	return func(m *Model) { m.DT = dt }
}

// New creates an empty model. The root network scope is open.
func New(name string, opts ...Option) *Model {
	root := &Network{name: name, byName: make(map[string]Object)}
	m := &Model{
		Name:  name,
		DT:    constants.DefaultDT,
		root:  root,
		stack: []*Network{root},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the model's root network scope.
func (m *Model) Root() *Network { return m.root }

// Current returns the innermost open network scope.
func (m *Model) Current() *Network { return m.stack[len(m.stack)-1] }

// BeginNetwork opens a nested network scope. Objects declared until the
// matching EndNetwork are registered to it alone.
func (m *Model) BeginNetwork(name string) (*Network, error) {
	cur := m.Current()
	sub := &Network{name: name, byName: make(map[string]Object)}
	if err := cur.register(name, sub); err != nil {
		return nil, err
	}
	cur.Networks = append(cur.Networks, sub)
	m.stack = append(m.stack, sub)
	return sub, nil
}

// EndNetwork closes the innermost network scope. The enclosing scope's
// membership is exactly as it was before the scope opened, plus the nested
// network itself.
func (m *Model) EndNetwork() error {
	if len(m.stack) == 1 {
		return fmt.Errorf("model %q: no open network scope: %w", m.Name, ErrInvalidParameter)
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

// Scope runs fn inside a nested network scope, closing it afterwards.
func (m *Model) Scope(name string, fn func(*Network) error) (*Network, error) {
	sub, err := m.BeginNetwork(name)
	if err != nil {
		return nil, err
	}
	defer m.EndNetwork()
	if err := fn(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Ensemble declares a population of nNeurons neurons representing a
// dims-dimensional vector, registered to the innermost open scope.
func (m *Model) Ensemble(name string, nNeurons, dims int, opts ...EnsembleOption) (*Ensemble, error) {
	e := &Ensemble{
		name:       name,
		NNeurons:   nNeurons,
		Dimensions: dims,
		Radius:     defaultRadius(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := validateEnsemble(e); err != nil {
		return nil, err
	}
	cur := m.Current()
	if err := cur.register(name, e); err != nil {
		return nil, err
	}
	cur.Ensembles = append(cur.Ensembles, e)
	return e, nil
}

// Node declares an external input with the given output. TimeFunction
// outputs are evaluated once at t=0 to fix their length.
func (m *Model) Node(name string, out Output) (*Node, error) {
	if out == nil {
		return nil, fmt.Errorf("node %q: nil output (use Sink for passthrough nodes): %w",
			name, ErrInvalidParameter)
	}
	n := &Node{name: name, Output: out}
	switch o := out.(type) {
	case Constant:
		n.Size = len(o)
	case TimeFunction:
		n.Size = len(o(0))
	}
	if n.Size == 0 {
		return nil, fmt.Errorf("node %q: empty output: %w", name, ErrInvalidParameter)
	}
	cur := m.Current()
	if err := cur.register(name, n); err != nil {
		return nil, err
	}
	cur.Nodes = append(cur.Nodes, n)
	return n, nil
}

// Sink declares a passthrough node of the given size with no output of its
// own; its value each step is the sum of its inbound filtered signals.
func (m *Model) Sink(name string, size int) (*Node, error) {
	if size <= 0 {
		return nil, fmt.Errorf("node %q: size %d: %w", name, size, ErrInvalidParameter)
	}
	n := &Node{name: name, Size: size}
	cur := m.Current()
	if err := cur.register(name, n); err != nil {
		return nil, err
	}
	cur.Nodes = append(cur.Nodes, n)
	return n, nil
}

// Connect declares a directed connection from pre to post, registered to the
// innermost open scope. Transform shapes are validated at build time.
func (m *Model) Connect(pre, post Terminal, opts ...ConnectionOption) (*Connection, error) {
	m.connSeq++
	c := &Connection{
		name: fmt.Sprintf("%s>%s#%d", terminalLabel(pre), terminalLabel(post), m.connSeq),
		Pre:  pre,
		Post: post,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := validateConnection(c); err != nil {
		return nil, err
	}
	cur := m.Current()
	cur.Connections = append(cur.Connections, c)
	return c, nil
}

// Probe declares an observation of target's output signal.
func (m *Model) Probe(target Object, opts ...ProbeOption) (*Probe, error) {
	m.probeSeq++
	p := &Probe{
		name:   fmt.Sprintf("probe:%s#%d", objectLabel(target), m.probeSeq),
		Target: target,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := validateProbe(p); err != nil {
		return nil, err
	}
	cur := m.Current()
	cur.Probes = append(cur.Probes, p)
	return p, nil
}

// Ref is a tagged lookup key: either a name or an object handle.
type Ref struct {
	name string
	obj  Object
}

// ByName keys a lookup by declared name.
func ByName(name string) Ref { return Ref{name: name} }

// ByObject keys a lookup by object identity.
func ByObject(obj Object) Ref { return Ref{obj: obj} }

// Get resolves a lookup key against the model's whole scope tree, innermost
// declarations searched in declaration order. Absence returns nil, never an
// error; callers distinguish "not found" themselves.
func (m *Model) Get(key Ref) Object {
	return getIn(m.root, key)
}

func getIn(n *Network, key Ref) Object {
	if key.name != "" {
		if obj, ok := n.byName[key.name]; ok {
			return obj
		}
	} else if key.obj != nil && n.Contains(key.obj) {
		return key.obj
	}
	for _, sub := range n.Networks {
		if obj := getIn(sub, key); obj != nil {
			return obj
		}
	}
	return nil
}

// EachEnsemble visits every ensemble in the scope tree in declaration order.
func (m *Model) EachEnsemble(fn func(*Ensemble)) { eachEnsemble(m.root, fn) }

func eachEnsemble(n *Network, fn func(*Ensemble)) {
	for _, e := range n.Ensembles {
		fn(e)
	}
	for _, sub := range n.Networks {
		eachEnsemble(sub, fn)
	}
}

// EachNode visits every node in the scope tree in declaration order.
func (m *Model) EachNode(fn func(*Node)) { eachNode(m.root, fn) }

func eachNode(n *Network, fn func(*Node)) {
	for _, nd := range n.Nodes {
		fn(nd)
	}
	for _, sub := range n.Networks {
		eachNode(sub, fn)
	}
}

// EachConnection visits every connection in the scope tree in declaration
// order.
func (m *Model) EachConnection(fn func(*Connection)) { eachConnection(m.root, fn) }

func eachConnection(n *Network, fn func(*Connection)) {
	for _, c := range n.Connections {
		fn(c)
	}
	for _, sub := range n.Networks {
		eachConnection(sub, fn)
	}
}

// EachProbe visits every probe in the scope tree in declaration order.
func (m *Model) EachProbe(fn func(*Probe)) { eachProbe(m.root, fn) }

func eachProbe(n *Network, fn func(*Probe)) {
	for _, p := range n.Probes {
		fn(p)
	}
	for _, sub := range n.Networks {
		eachProbe(sub, fn)
	}
}

func terminalLabel(t Terminal) string {
	if t == nil {
		return "?"
	}
	return t.ObjectName()
}

func objectLabel(o Object) string {
	if o == nil {
		return "?"
	}
	return o.ObjectName()
}
