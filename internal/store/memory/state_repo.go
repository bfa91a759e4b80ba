package memory

import (
	"context"
	"sync"

	"client_go/internal/domain"
)

// StateRepo keeps client state in process memory. Nothing survives a restart.
type StateRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStateRepo() *StateRepo {
	return &StateRepo{values: make(map[string]string)}
}

var _ domain.StateRepository = (*StateRepo)(nil)

func (r *StateRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *StateRepo) Put(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}

func (r *StateRepo) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}
