package sim

import "fmt"

// Signal is a named numeric buffer holding one time-varying quantity. All
// data flowing between operators lives in signals.
type Signal struct {
	Name   string
	Values []float64
}

// Registry is the flat store of signals owned by one compiled model.
type Registry struct {
	signals []*Signal
	byName  map[string]*Signal
}

// NewRegistry creates an empty signal registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Signal)}
}

// Alloc creates a zeroed signal. Names must be unique within the registry.
func (r *Registry) Alloc(name string, size int) (*Signal, error) {
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("signal %q already allocated", name)
	}
	if size <= 0 {
		return nil, fmt.Errorf("signal %q: size %d must be positive", name, size)
	}
	s := &Signal{Name: name, Values: make([]float64, size)}
	r.signals = append(r.signals, s)
	r.byName[name] = s
	return s, nil
}

// Get returns the named signal, or nil when absent.
func (r *Registry) Get(name string) *Signal {
	return r.byName[name]
}

// Len returns the number of allocated signals.
func (r *Registry) Len() int { return len(r.signals) }

// unique derives an unused signal name from base by appending a counter.
func (r *Registry) unique(base string) string {
	if _, exists := r.byName[base]; !exists {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s~%d", base, i)
		if _, exists := r.byName[name]; !exists {
			return name
		}
	}
}
