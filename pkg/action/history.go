package action

import (
	"sync"

	"github.com/google/uuid"
)

// History retains every action for the life of the process, in creation
// order, with by-ID lookup for the API and clients.
type History struct {
	mu      sync.RWMutex
	ordered []*SearchAction
	byID    map[uuid.UUID]*SearchAction
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		byID: make(map[uuid.UUID]*SearchAction),
	}
}

// Add records an action. Re-adding the same action is a no-op.
func (h *History) Add(a *SearchAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[a.ID()]; ok {
		return
	}
	h.ordered = append(h.ordered, a)
	h.byID[a.ID()] = a
}

// Get returns the action with the given ID, or false.
func (h *History) Get(id uuid.UUID) (*SearchAction, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.byID[id]
	return a, ok
}

// List returns all actions in creation order.
func (h *History) List() []*SearchAction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*SearchAction, len(h.ordered))
	copy(out, h.ordered)
	return out
}

// Len returns the number of recorded actions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ordered)
}
