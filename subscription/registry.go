// Package subscription implements the observer registry that lets consumers
// react to cache state changes.
package subscription

import (
	"errors"
	"fmt"
	"sync"
)

// Callback is invoked with no arguments on every notification.
type Callback func()

// Registry holds callbacks in registration order.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   []entry
}

type entry struct {
	id uint64
	fn Callback
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	registry *Registry
	id       uint64
	once     sync.Once
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers fn and returns its handle.
func (r *Registry) Subscribe(fn Callback) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.subs = append(r.subs, entry{id: r.nextID, fn: fn})
	return &Subscription{registry: r, id: r.nextID}
}

// Unsubscribe removes the callback. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.registry.remove(s.id)
	})
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.subs {
		if e.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Notify calls every callback synchronously in registration order. A panicking
// callback does not stop the others; all panics are returned joined.
func (r *Registry) Notify() error {
	r.mu.Lock()
	snapshot := make([]entry, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.Unlock()

	var errs []error
	for _, e := range snapshot {
		if err := invoke(e.fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(fn Callback) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("subscriber panicked: %v", rec)
		}
	}()
	fn()
	return nil
}
