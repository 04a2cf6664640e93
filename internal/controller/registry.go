package controller

import (
	"sort"
	"sync"
)

// Registry holds the controllers for all monitored junctions, keyed by
// junction ID.
type Registry struct {
	mu          sync.RWMutex
	controllers map[int64]*Controller
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[int64]*Controller)}
}

// Add registers a controller, replacing any previous controller for
// the same junction.
func (r *Registry) Add(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[c.JunctionID()] = c
}

// Get returns the controller for a junction.
func (r *Registry) Get(junctionID int64) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[junctionID]
	return c, ok
}

// IDs returns all registered junction IDs in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.controllers))
	for id := range r.controllers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
