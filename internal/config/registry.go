package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// capability kind. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	recognition map[string]func(ProviderEntry) (recognition.Provider, error)
	playback    map[string]func(ProviderEntry) (playback.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		recognition: make(map[string]func(ProviderEntry) (recognition.Provider, error)),
		playback:    make(map[string]func(ProviderEntry) (playback.Provider, error)),
	}
}

// RegisterRecognition registers a recognition provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterRecognition(name string, factory func(ProviderEntry) (recognition.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognition[name] = factory
}

// RegisterPlayback registers a playback provider factory under name.
func (r *Registry) RegisterPlayback(name string, factory func(ProviderEntry) (playback.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playback[name] = factory
}

// CreateRecognition instantiates the recognition provider selected by entry.
// Returns (nil, nil) when entry.Name is empty: the capability is disabled.
func (r *Registry) CreateRecognition(entry ProviderEntry) (recognition.Provider, error) {
	if entry.Name == "" {
		return nil, nil
	}
	r.mu.RLock()
	factory, ok := r.recognition[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recognition provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePlayback instantiates the playback provider selected by entry.
// Returns (nil, nil) when entry.Name is empty: the capability is disabled.
func (r *Registry) CreatePlayback(entry ProviderEntry) (playback.Provider, error) {
	if entry.Name == "" {
		return nil, nil
	}
	r.mu.RLock()
	factory, ok := r.playback[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: playback provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
