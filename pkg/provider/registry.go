package provider

import (
	"fmt"
	"sync"

	"Mazraaty/internal/model"
)

// Registry maps channels onto their guarded adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.Channel]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.Channel]Adapter),
	}
}

func (r *Registry) Register(ch model.Channel, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[ch] = a
}

func (r *Registry) Get(ch model.Channel) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[ch]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for channel %s", ch)
	}
	return a, nil
}
