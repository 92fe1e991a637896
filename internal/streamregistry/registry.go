// Package streamregistry tracks live streams by id, enforces the admission
// cap, and owns the grace-period teardown that waits out in-flight HTTP GET
// requests before a stream's resources are released.
package streamregistry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyStreams is returned by Create when activeStreams has reached the
// configured cap.
var ErrTooManyStreams = errors.New("streamregistry: too many active streams")

// ErrNotFound is returned by Lookup/Drop for an unknown stream id.
var ErrNotFound = errors.New("streamregistry: stream not found")

// DefaultMaxConcurrentStreams is the admission cap used when none is
// configured.
const DefaultMaxConcurrentStreams = 10

// DefaultGracePeriod is how long Drop waits for in-flight GETs before
// cancelling a stream's context.
const DefaultGracePeriod = 3 * time.Second

// Entry is one registered stream's lifecycle handle. Callers embed their own
// stream state via the Value field; the registry only manages identity,
// admission, and cancellation.
type Entry struct {
	ID     string
	Value  any
	Cancel context.CancelFunc
}

// Registry tracks live streams and admits new ones.
type Registry struct {
	maxConcurrent int
	gracePeriod   time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates a Registry with the given admission cap and teardown grace
// period.
func New(maxConcurrent int, gracePeriod time.Duration) *Registry {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentStreams
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Registry{
		maxConcurrent: maxConcurrent,
		gracePeriod:   gracePeriod,
		entries:       make(map[string]*Entry),
	}
}

// Create registers a new stream id with its cancellation func and opaque
// value, failing with ErrTooManyStreams once the admission cap is reached.
func (r *Registry) Create(id string, value any, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.maxConcurrent {
		return ErrTooManyStreams
	}
	r.entries[id] = &Entry{ID: id, Value: value, Cancel: cancel}
	return nil
}

// Lookup returns the entry for a stream id.
func (r *Registry) Lookup(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Count returns the number of currently registered streams.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Drop removes the stream from the registry at once, then waits out the
// teardown grace period (letting in-flight GETs finish naturally) before
// cancelling the stream's context. Safe to call more than once; later calls
// are no-ops.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	go func() {
		time.Sleep(r.gracePeriod)
		if e.Cancel != nil {
			e.Cancel()
		}
	}()
}

// DropImmediately cancels and removes a stream with no grace period, for use
// when the producer itself disconnected and there's nothing left to drain.
func (r *Registry) DropImmediately(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if ok && e.Cancel != nil {
		e.Cancel()
	}
}

// IDs returns a snapshot of currently registered stream ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
