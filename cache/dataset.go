// Package cache holds the in-memory state of each dataset and its durable
// snapshot lifecycle.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the loader state of a dataset.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Snapshot is an immutable view of a dataset. Readers always get a complete
// snapshot, never a partially updated one.
type Snapshot[T any] struct {
	Payload    []T
	IsLoaded   bool
	IsLoading  bool
	Error      string
	WrittenAt  time.Time
	MemoryOnly bool
}

// State derives the loader state from the flags.
func (s Snapshot[T]) State() State {
	switch {
	case s.IsLoading:
		return StateLoading
	case s.Error != "":
		return StateError
	case s.IsLoaded:
		return StateLoaded
	}
	return StateIdle
}

// Dataset holds one dataset's state behind an atomic pointer. Transitions are
// serialized; reads are lock-free.
type Dataset[T any] struct {
	key   string
	mu    sync.Mutex
	state atomic.Pointer[Snapshot[T]]
}

// NewDataset creates an empty, idle dataset.
func NewDataset[T any](key string) *Dataset[T] {
	d := &Dataset[T]{key: key}
	d.state.Store(&Snapshot[T]{Payload: []T{}})
	return d
}

func (d *Dataset[T]) Key() string {
	return d.key
}

// Snapshot returns the current state.
func (d *Dataset[T]) Snapshot() Snapshot[T] {
	return *d.state.Load()
}

func (d *Dataset[T]) update(fn func(s *Snapshot[T])) {
	next := *d.state.Load()
	fn(&next)
	d.state.Store(&next)
}

// BeginLoad moves the dataset to loading. It returns false when a load is
// already in flight.
func (d *Dataset[T]) BeginLoad() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Load().IsLoading {
		return false
	}
	d.update(func(s *Snapshot[T]) {
		s.IsLoading = true
	})
	return true
}

// CompleteLoad swaps in a new payload and clears any previous error.
// memoryOnly records that the durable snapshot could not be written.
func (d *Dataset[T]) CompleteLoad(payload []T, writtenAt time.Time, memoryOnly bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if payload == nil {
		payload = []T{}
	}
	d.update(func(s *Snapshot[T]) {
		s.Payload = payload
		s.IsLoaded = true
		s.IsLoading = false
		s.Error = ""
		s.WrittenAt = writtenAt
		s.MemoryOnly = memoryOnly
	})
}

// FailLoad records a batch-level error. Previously loaded data is kept.
func (d *Dataset[T]) FailLoad(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.update(func(s *Snapshot[T]) {
		s.IsLoading = false
		s.Error = err.Error()
	})
}

// Restore installs a payload read back from durable storage. It does nothing
// and returns false while a load is in flight, so a snapshot read before a
// reload started can never overwrite that reload's state.
func (d *Dataset[T]) Restore(payload []T, writtenAt time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Load().IsLoading {
		return false
	}
	if payload == nil {
		payload = []T{}
	}
	d.update(func(s *Snapshot[T]) {
		s.Payload = payload
		s.IsLoaded = true
		s.Error = ""
		s.WrittenAt = writtenAt
	})
	return true
}

// BeginReload moves the dataset to loading and clears the loaded flag in one
// step. The payload stays readable until the next successful load. It returns
// false when a load is already in flight.
func (d *Dataset[T]) BeginReload() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Load().IsLoading {
		return false
	}
	d.update(func(s *Snapshot[T]) {
		s.IsLoading = true
		s.IsLoaded = false
	})
	return true
}
