package selection

import (
	"sync"

	"github.com/letra-wholesale/order-sheet/models"
)

// Registry holds one working set per session.
type Registry struct {
	mu   sync.Mutex
	sets map[string]*WorkingSet
}

func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*WorkingSet)}
}

// Do runs fn against the working set of sessionID, creating it on first use.
func (r *Registry) Do(sessionID string, fn func(ws *WorkingSet) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.sets[sessionID]
	if !ok {
		ws = NewWorkingSet()
		r.sets[sessionID] = ws
	}
	return fn(ws)
}

// Items returns a snapshot of the session's selection.
func (r *Registry) Items(sessionID string) []models.SelectedProduct {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.sets[sessionID]
	if !ok {
		return []models.SelectedProduct{}
	}
	return ws.Items()
}

// ReconcileAll reconciles every session against the catalog snapshot.
func (r *Registry) ReconcileAll(catalog []models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ws := range r.sets {
		ws.Reconcile(catalog)
	}
}

// Forget drops a session's working set.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, sessionID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}
