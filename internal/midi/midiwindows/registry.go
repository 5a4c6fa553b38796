package midiwindows

import "sync"

// registry hands out integer ids for values that a C callback must reach.
// winmm passes the id back as the callback instance, so no Go pointer
// crosses into the driver.
type registry[T any] struct {
	mu    sync.RWMutex
	next  uintptr
	items map[uintptr]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{items: make(map[uintptr]T)}
}

// add stores v and returns its id. Ids start at 1 and are never reused.
func (r *registry[T]) add(v T) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.items[r.next] = v
	return r.next
}

func (r *registry[T]) get(id uintptr) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	return v, ok
}

func (r *registry[T]) remove(id uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}
