// Package metrics provides lightweight counters for the ticket service.
// Counters use atomic operations for lock-free concurrent access.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Counter is a monotonically incrementing counter.
type Counter struct {
	name  string
	value atomic.Int64
}

// NewCounter returns a new Counter with the given name.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n. Negative values are ignored because
// counters are monotonically increasing.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.value.Add(n)
	}
}

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Registry holds registered counters keyed by name, with get-or-create
// semantics so callers never need to check for nil.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// DefaultRegistry is the process-wide registry used by the pre-defined
// metrics in standard.go.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter)}
}

// Counter returns the Counter registered under name, creating it if it
// does not exist yet.
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c = NewCounter(name)
	r.counters[name] = c
	return c
}

// Each calls fn for every registered counter. Iteration order is not
// defined.
func (r *Registry) Each(fn func(*Counter)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.counters {
		fn(c)
	}
}
