package functions

import (
	"sort"
	"sync"

	"github.com/signalist/signalist/internal/events"
)

// Registry holds registered functions by ID
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds fn. A function with the same ID is replaced.
func (r *Registry) Register(fn *Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[fn.ID] = fn
}

// Get returns a function by ID, or nil
func (r *Registry) Get(id string) *Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[id]
}

// All returns every function ordered by ID
func (r *Registry) All() []*Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Function, 0, len(r.funcs))
	for _, fn := range r.funcs {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ForEvent returns the functions triggered by eventType, ordered by ID
func (r *Registry) ForEvent(eventType events.EventType) []*Function {
	var out []*Function
	for _, fn := range r.All() {
		for _, e := range fn.Events {
			if e == eventType {
				out = append(out, fn)
				break
			}
		}
	}
	return out
}

// EventTypes returns every event type some function listens to
func (r *Registry) EventTypes() []events.EventType {
	seen := make(map[events.EventType]bool)
	var out []events.EventType
	for _, fn := range r.All() {
		for _, e := range fn.Events {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}
