package session

import (
	"sync"

	"github.com/0x6d61/pshelper/internal/status"
)

// Registry is the state shared by every session of a run: the next free id,
// the sessions waiting for first-time approval, and the active sort key.
// It is safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	nextID        uint64
	needsApproval []*Session
	sortField     status.Field
}

// NewRegistry returns a registry whose first allocated id is 1.
func NewRegistry() *Registry {
	return &Registry{nextID: 1, sortField: status.FieldID}
}

// NextID returns the id the next fresh session will receive.
func (r *Registry) NextID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}

// Allocate hands out the next id.
func (r *Registry) Allocate() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Observe records that id is in use. The counter only ever moves forward.
func (r *Registry) Observe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id >= r.nextID {
		r.nextID = id + 1
	}
}

// QueueApproval appends s to the approval list unless it is already queued.
func (r *Registry) QueueApproval(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.needsApproval {
		if q == s {
			return
		}
	}
	r.needsApproval = append(r.needsApproval, s)
}

// NeedsApproval returns a copy of the approval list in queue order.
func (r *Registry) NeedsApproval() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.needsApproval))
	copy(out, r.needsApproval)
	return out
}

// ClearApproval empties the approval list. Scanners call it at the start of
// every pass.
func (r *Registry) ClearApproval() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.needsApproval = nil
}

// SortField returns the active comparison key.
func (r *Registry) SortField() status.Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortField
}

// SetSortField changes the active comparison key.
func (r *Registry) SetSortField(f status.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortField = f
}
