package changesync

import "sync"

// Registry tracks model types whose syncing is switched off. The zero value
// is not usable; create one with NewRegistry and share it explicitly.
type Registry struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

// NewRegistry creates a registry with every type enabled.
func NewRegistry() *Registry {
	return &Registry{disabled: make(map[string]bool)}
}

// Disable stops syncing for modelType.
func (r *Registry) Disable(modelType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[modelType] = true
}

// Enable resumes syncing for modelType.
func (r *Registry) Enable(modelType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, modelType)
}

// Enabled reports whether modelType is synced.
func (r *Registry) Enabled(modelType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.disabled[modelType]
}

// Without runs fn with syncing disabled for modelType, then restores the
// previous state even when fn panics.
func (r *Registry) Without(modelType string, fn func() error) error {
	was := r.Enabled(modelType)
	r.Disable(modelType)
	defer func() {
		if was {
			r.Enable(modelType)
		}
	}()
	return fn()
}
