package registry

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Metadata describes a registered item.
type Metadata struct {
	// Name is the registered name.
	Name string

	// CreatedAt is when the item was registered.
	CreatedAt time.Time
}

type item[T any] struct {
	value T
	meta  Metadata
}

// Registry owns named items and remembers registration order. The store keeps
// one for tables and one for joins; everything else refers to them by name.
type Registry[T any] struct {
	mu    sync.RWMutex
	kind  string
	items map[string]*item[T]
	order []string

	// ErrNotFound and ErrDuplicate are wrapped into lookup and register errors.
	ErrNotFound  error
	ErrDuplicate error
}

// New returns an empty registry. kind names the items in error messages.
func New[T any](kind string, errNotFound, errDuplicate error) *Registry[T] {
	return &Registry[T]{
		kind:         kind,
		items:        make(map[string]*item[T]),
		ErrNotFound:  errNotFound,
		ErrDuplicate: errDuplicate,
	}
}

// NewTableRegistry returns a registry keyed by table name.
func NewTableRegistry[T any]() *Registry[T] {
	return New[T]("table", core.ErrTableNotFound, core.ErrDuplicateTable)
}

// NewJoinRegistry returns a registry keyed by join name.
func NewJoinRegistry[T any]() *Registry[T] {
	return New[T]("join", core.ErrJoinNotFound, core.ErrDuplicateJoin)
}

// Register adds value under name. Names are unique.
func (r *Registry[T]) Register(name string, value T) error {
	if name == "" {
		return errors.Wrapf(core.ErrInvalidConfig, "%s name cannot be empty", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return errors.Wrapf(r.ErrDuplicate, "%s %q is already registered", r.kind, name)
	}
	r.items[name] = &item[T]{
		value: value,
		meta:  Metadata{Name: name, CreatedAt: time.Now()},
	}
	r.order = append(r.order, name)
	return nil
}

// Get returns the item registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[name]
	if !ok {
		var zero T
		return zero, errors.Wrapf(r.ErrNotFound, "%s %q is not registered", r.kind, name)
	}
	return it.value, nil
}

// Metadata returns the metadata of name.
func (r *Registry[T]) Metadata(name string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[name]
	if !ok {
		return Metadata{}, errors.Wrapf(r.ErrNotFound, "%s %q is not registered", r.kind, name)
	}
	return it.meta, nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[name]
	return ok
}

// Unregister removes name.
func (r *Registry[T]) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[name]; !ok {
		return errors.Wrapf(r.ErrNotFound, "%s %q is not registered", r.kind, name)
	}
	delete(r.items, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns registered names in registration order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Values returns registered items in registration order.
func (r *Registry[T]) Values() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name].value)
	}
	return out
}

// Count returns the number of registered items.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear removes every item.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*item[T])
	r.order = nil
}
