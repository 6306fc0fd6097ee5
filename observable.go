package loom

import (
	"slices"
	"sync"
)

// Observable is a list shared between components and the goroutines that
// feed it. Every mutation notifies subscribers; UseObservable turns those
// notifications into re-renders. It is safe for concurrent use.
type Observable[T any] struct {
	mu        sync.Mutex
	items     []T
	version   uint64
	listeners map[int]func(Change[T])
	nextID    int
}

// Change describes a modification to the observable.
type Change[T any] struct {
	Type  ChangeType
	Index int
	Item  T // For Add/Update, the new value
	Old   T // For Update/Remove, the old value
}

type ChangeType int

const (
	ChangeAdd ChangeType = iota
	ChangeUpdate
	ChangeRemove
	ChangeClear
	ChangeSet // Full replacement
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	case ChangeClear:
		return "clear"
	case ChangeSet:
		return "set"
	}
	return "unknown"
}

// NewObservable creates a new observable list.
func NewObservable[T any](items ...T) *Observable[T] {
	return &Observable[T]{items: items}
}

// Items returns a copy of all items.
func (o *Observable[T]) Items() []T {
	items, _ := o.snapshot()
	return items
}

// snapshot returns a copy of the items and the version they belong to.
func (o *Observable[T]) snapshot() ([]T, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]T(nil), o.items...), o.version
}

// Version increases with every mutation.
func (o *Observable[T]) Version() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.version
}

// Len returns the number of items.
func (o *Observable[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// At returns the item at index i, or zero value if out of bounds.
func (o *Observable[T]) At(i int) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.items) {
		var zero T
		return zero
	}
	return o.items[i]
}

// Set replaces all items.
func (o *Observable[T]) Set(items []T) *Observable[T] {
	o.mu.Lock()
	o.items = append([]T(nil), items...)
	o.commit(Change[T]{Type: ChangeSet})
	return o
}

// Add appends an item.
func (o *Observable[T]) Add(item T) *Observable[T] {
	o.mu.Lock()
	idx := len(o.items)
	o.items = append(o.items, item)
	o.commit(Change[T]{Type: ChangeAdd, Index: idx, Item: item})
	return o
}

// Insert inserts an item at index i, clamped to the list bounds.
func (o *Observable[T]) Insert(i int, item T) *Observable[T] {
	o.mu.Lock()
	i = min(max(i, 0), len(o.items))
	var zero T
	o.items = append(o.items, zero)
	copy(o.items[i+1:], o.items[i:])
	o.items[i] = item
	o.commit(Change[T]{Type: ChangeAdd, Index: i, Item: item})
	return o
}

// RemoveAt removes the item at index i.
func (o *Observable[T]) RemoveAt(i int) *Observable[T] {
	o.mu.Lock()
	if i < 0 || i >= len(o.items) {
		o.mu.Unlock()
		return o
	}
	old := o.items[i]
	o.items = append(o.items[:i], o.items[i+1:]...)
	o.commit(Change[T]{Type: ChangeRemove, Index: i, Old: old})
	return o
}

// Update modifies the item at index i.
func (o *Observable[T]) Update(i int, fn func(*T)) *Observable[T] {
	o.mu.Lock()
	if i < 0 || i >= len(o.items) {
		o.mu.Unlock()
		return o
	}
	old := o.items[i]
	fn(&o.items[i])
	o.commit(Change[T]{Type: ChangeUpdate, Index: i, Item: o.items[i], Old: old})
	return o
}

// Clear removes all items.
func (o *Observable[T]) Clear() *Observable[T] {
	o.mu.Lock()
	o.items = nil
	o.commit(Change[T]{Type: ChangeClear})
	return o
}

// Subscribe adds a change listener and returns an unsubscribe function.
// Listeners run on the goroutine that made the change.
func (o *Observable[T]) Subscribe(fn func(Change[T])) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listeners == nil {
		o.listeners = make(map[int]func(Change[T]))
	}
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// commit bumps the version and notifies listeners. It is called with mu held
// and releases it before any listener runs.
func (o *Observable[T]) commit(c Change[T]) {
	o.version++
	ids := make([]int, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Change[T]), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, o.listeners[id])
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
