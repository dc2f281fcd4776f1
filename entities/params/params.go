// Package params holds the named numeric parameters behind the whiteboard
// sliders.
package params

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"blackboard/tools/logger"
)

// Parameter is one named slider value
type Parameter struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
	Step  float64 `json:"step"`
}

// ChangeListener is called after a parameter value changes
type ChangeListener func(name string, value float64)

// RebuildListener is called when the parameter set itself changes and the
// controls showing it must be rebuilt
type RebuildListener func(params []Parameter)

// Registry stores parameters by name. Listeners run synchronously on the
// goroutine that made the change, after the registry lock is released.
type Registry struct {
	mu        sync.Mutex
	params    map[string]*Parameter
	order     []string
	onChange  []ChangeListener
	onRebuild []RebuildListener
	log       *logger.Logger
}

// New creates an empty registry
func New(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		params: make(map[string]*Parameter),
		log:    log.WithPrefix("params"),
	}
}

// OnChange registers a value listener
func (r *Registry) OnChange(fn ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// OnRebuild registers a listener for additions and clears
func (r *Registry) OnRebuild(fn RebuildListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRebuild = append(r.onRebuild, fn)
}

// Add inserts or overwrites a parameter. A non-positive step becomes 1 and
// min/max are swapped when given backwards. The value is clamped into range.
func (r *Registry) Add(name string, min, max, value, step float64) Parameter {
	if step <= 0 {
		step = 1
	}
	if min > max {
		min, max = max, min
	}
	p := Parameter{Name: name, Min: min, Max: max, Value: clamp(value, min, max), Step: step}

	r.mu.Lock()
	if _, exists := r.params[name]; !exists {
		r.order = append(r.order, name)
	}
	stored := p
	r.params[name] = &stored
	snapshot := r.listLocked()
	listeners := append([]RebuildListener(nil), r.onRebuild...)
	r.mu.Unlock()

	r.log.Debug("added %s [%g, %g] = %g step %g", name, min, max, p.Value, step)
	for _, fn := range listeners {
		fn(snapshot)
	}
	return p
}

// SetValue stores a new value clamped to the parameter's range and notifies
// every change listener exactly once. Unknown names are an error.
func (r *Registry) SetValue(name string, value float64) (float64, error) {
	r.mu.Lock()
	p, ok := r.params[name]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	p.Value = clamp(value, p.Min, p.Max)
	stored := p.Value
	listeners := append([]ChangeListener(nil), r.onChange...)
	r.mu.Unlock()

	r.log.Parameter(name, stored)
	for _, fn := range listeners {
		fn(name, stored)
	}
	return stored, nil
}

// Set is the textual "set X to Y" path. An unknown name is registered with the
// range [0,100] and step 1 before the value is applied, so Y is clamped like
// any slider input.
func (r *Registry) Set(name string, value float64) (float64, error) {
	if _, ok := r.Get(name); !ok {
		r.Add(name, 0, 100, value, 1)
	}
	return r.SetValue(name, value)
}

// Get returns a copy of the named parameter
func (r *Registry) Get(name string) (Parameter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.params[name]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// List returns the parameters in registration order
func (r *Registry) List() []Parameter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

// Clear removes every parameter. It is only used when the whole board is cleared.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.params = make(map[string]*Parameter)
	r.order = nil
	listeners := append([]RebuildListener(nil), r.onRebuild...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
}

func (r *Registry) listLocked() []Parameter {
	out := make([]Parameter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.params[name])
	}
	return out
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// --- Instruction parsing ---

var assignPattern = regexp.MustCompile(`(?i)(\w+)[:\s]+(?:to|is|equals?|=)[:\s]+(-?\d+\.?\d*)`)

// Assignment is a parsed "set X to Y" instruction
type Assignment struct {
	Name  string
	Value float64
}

// ParseAssignment extracts "name to value", "name is value", "name = value" and
// similar forms. The name is lower-cased.
func ParseAssignment(text string) (Assignment, bool) {
	m := assignPattern.FindStringSubmatch(text)
	if m == nil {
		return Assignment{}, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Assignment{}, false
	}
	return Assignment{Name: strings.ToLower(m[1]), Value: v}, true
}
