// Package preview hands out revocable local playback references for queued
// audio files. A reference stays valid until it is released.
package preview

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrRevoked is returned when resolving a released or unknown handle.
var ErrRevoked = errors.New("preview revoked")

// Handle is a playback reference for one file.
type Handle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Source is what a live handle resolves to.
type Source struct {
	Path     string
	MIMEType string
}

type Registry struct {
	mu      sync.RWMutex
	prefix  string
	sources map[string]Source
	onCount func(n int)
}

// NewRegistry creates a Registry whose URLs start with prefix, e.g. "/preview/".
// onCount, when non-nil, is told the number of live handles after each change.
func NewRegistry(prefix string, onCount func(n int)) *Registry {
	return &Registry{
		prefix:  prefix,
		sources: make(map[string]Source),
		onCount: onCount,
	}
}

// Acquire registers path and returns a fresh handle for it.
func (r *Registry) Acquire(path, mimeType string) Handle {
	id := uuid.NewString()

	r.mu.Lock()
	r.sources[id] = Source{Path: path, MIMEType: mimeType}
	n := len(r.sources)
	r.mu.Unlock()

	r.report(n)
	return Handle{ID: id, URL: r.prefix + id}
}

// Release revokes the handle. Releasing an unknown handle does nothing.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	_, ok := r.sources[id]
	delete(r.sources, id)
	n := len(r.sources)
	r.mu.Unlock()

	if ok {
		r.report(n)
	}
}

// Open resolves a live handle.
func (r *Registry) Open(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return Source{}, ErrRevoked
	}
	return src, nil
}

// Live returns the number of unreleased handles.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Close revokes every handle.
func (r *Registry) Close() {
	r.mu.Lock()
	r.sources = make(map[string]Source)
	r.mu.Unlock()

	r.report(0)
}

func (r *Registry) report(n int) {
	if r.onCount != nil {
		r.onCount(n)
	}
}
