package eval

import "sort"

// Env is the single global variable namespace of a run. Reading a name that
// was never set yields 0.
type Env struct {
	vars map[string]float64
}

// NewEnv returns an empty environment
func NewEnv() *Env {
	return &Env{vars: make(map[string]float64)}
}

// Get returns the value of name, or 0 if it is undefined
func (e *Env) Get(name string) float64 {
	return e.vars[name]
}

// Lookup returns the value of name and whether it has been set
func (e *Env) Lookup(name string) (float64, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set stores value under name
func (e *Env) Set(name string, value float64) {
	e.vars[name] = value
}

// Declare initializes name to 0 unless it already holds a value
func (e *Env) Declare(name string) {
	if _, ok := e.vars[name]; !ok {
		e.vars[name] = 0
	}
}

// Names returns the defined names in sorted order
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every defined variable
func (e *Env) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}
