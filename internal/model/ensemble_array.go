package model

import "fmt"

// EnsembleArray partitions a neuron budget across several sub-ensembles,
// each representing an independent slice of a larger vector. Input and
// Output are passthrough nodes carrying the full concatenated vector.
type EnsembleArray struct {
	name string

	Input  *Node
	Output *Node

	Ensembles       []*Ensemble
	DimsPerEnsemble int
}

func (a *EnsembleArray) ObjectName() string { return a.name }

// Dimensions returns the total represented dimensionality.
func (a *EnsembleArray) Dimensions() int {
	return len(a.Ensembles) * a.DimsPerEnsemble
}

// ArrayOption configures an EnsembleArray at declaration.
type ArrayOption func(*arrayConfig)

type arrayConfig struct {
	dimsPerEnsemble int
	radius          float64
}

// WithDimsPerEnsemble sets how many dimensions each sub-ensemble represents.
func WithDimsPerEnsemble(d int) ArrayOption {
	return func(c *arrayConfig) { c.dimsPerEnsemble = d }
}

// WithArrayRadius sets the radius of every sub-ensemble.
func WithArrayRadius(r float64) ArrayOption {
	return func(c *arrayConfig) { c.radius = r }
}

// EnsembleArray declares nEnsembles sub-ensembles sharing nNeurons neurons
// as evenly as possible (sizes differ by at most one), wired to passthrough
// Input and Output nodes. The whole template lives in its own network scope.
func (m *Model) EnsembleArray(name string, nNeurons, nEnsembles int, opts ...ArrayOption) (*EnsembleArray, error) {
	if nEnsembles <= 0 {
		return nil, fmt.Errorf("ensemble array %q: %d ensembles: %w", name, nEnsembles, ErrInvalidParameter)
	}
	if nNeurons < nEnsembles {
		return nil, fmt.Errorf("ensemble array %q: %d neurons for %d ensembles: %w",
			name, nNeurons, nEnsembles, ErrInvalidParameter)
	}
	cfg := arrayConfig{dimsPerEnsemble: 1, radius: defaultRadius()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dimsPerEnsemble <= 0 {
		return nil, fmt.Errorf("ensemble array %q: %d dims per ensemble: %w",
			name, cfg.dimsPerEnsemble, ErrInvalidParameter)
	}

	a := &EnsembleArray{name: name, DimsPerEnsemble: cfg.dimsPerEnsemble}
	total := nEnsembles * cfg.dimsPerEnsemble

	if _, err := m.BeginNetwork(name); err != nil {
		return nil, err
	}
	defer m.EndNetwork()

	var err error
	a.Input, err = m.Sink(name+".input", total)
	if err != nil {
		return nil, err
	}
	a.Output, err = m.Sink(name+".output", total)
	if err != nil {
		return nil, err
	}

	for i, size := range PartitionNeurons(nNeurons, nEnsembles) {
		ens, err := m.Ensemble(fmt.Sprintf("%s.%d", name, i), size, cfg.dimsPerEnsemble,
			WithRadius(cfg.radius))
		if err != nil {
			return nil, err
		}
		a.Ensembles = append(a.Ensembles, ens)

		// Route this ensemble's slice of the input vector in, and its
		// decoded value back out to the matching output slice.
		in := sliceTransform(cfg.dimsPerEnsemble, total, i*cfg.dimsPerEnsemble, false)
		out := sliceTransform(cfg.dimsPerEnsemble, total, i*cfg.dimsPerEnsemble, true)
		if _, err := m.Connect(a.Input, ens, WithTransform(in)); err != nil {
			return nil, err
		}
		if _, err := m.Connect(ens, a.Output, WithTransform(out)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// ConnectTo wires this array's output to another array's input.
func (a *EnsembleArray) ConnectTo(m *Model, other *EnsembleArray, opts ...ConnectionOption) (*Connection, error) {
	return m.Connect(a.Output, other.Input, opts...)
}

// PartitionNeurons splits n neurons across k ensembles with sizes differing
// by at most one, larger groups first.
func PartitionNeurons(n, k int) []int {
	sizes := make([]int, k)
	base, rem := n/k, n%k
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// sliceTransform builds a transform placing (or extracting, when spread is
// true) a dims-length block at the given offset within a width-length
// vector.
func sliceTransform(dims, width, offset int, spread bool) [][]float64 {
	var rows, cols int
	if spread {
		rows, cols = width, dims
	} else {
		rows, cols = dims, width
	}
	t := make([][]float64, rows)
	for i := range t {
		t[i] = make([]float64, cols)
	}
	for i := 0; i < dims; i++ {
		if spread {
			t[offset+i][i] = 1
		} else {
			t[i][offset+i] = 1
		}
	}
	return t
}
