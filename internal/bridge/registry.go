package bridge

import (
	"slices"
	"sync"
)

// Registry is a set of callbacks keyed by subscription id. Emit calls a
// snapshot of the callbacks outside the lock, so a callback may unsubscribe
// itself or others without deadlocking.
type Registry[T any] struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]func(T)
}

// Add registers fn and returns its unsubscribe function. Calling the
// returned function more than once is a no-op.
func (r *Registry[T]) Add(fn func(T)) func() {
	r.mu.Lock()
	if r.subs == nil {
		r.subs = make(map[uint64]func(T))
	}
	r.seq++
	id := r.seq
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry[T]) Emit(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.subs))
	ids := make([]uint64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Clear drops every subscription.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.subs = nil
	r.mu.Unlock()
}
