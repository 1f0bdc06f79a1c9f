package scenario

import "sync"

// Function is a decode function usable from a scenario file.
type Function func(x []float64) []float64

var (
	registryMu sync.RWMutex
	registry   = map[string]Function{
		"square": func(x []float64) []float64 {
			out := make([]float64, len(x))
			for i, v := range x {
				out[i] = v * v
			}
			return out
		},
		"abs": func(x []float64) []float64 {
			out := make([]float64, len(x))
			for i, v := range x {
				if v < 0 {
					v = -v
				}
				out[i] = v
			}
			return out
		},
		"negate": func(x []float64) []float64 {
			out := make([]float64, len(x))
			for i, v := range x {
				out[i] = -v
			}
			return out
		},
		"product": func(x []float64) []float64 {
			p := 1.0
			for _, v := range x {
				p *= v
			}
			return []float64{p}
		},
	}
)

// RegisterFunction makes fn available to scenario connections under name,
// replacing any previous registration.
func RegisterFunction(name string, fn Function) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// LookupFunction returns the function registered under name.
func LookupFunction(name string) (Function, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}
