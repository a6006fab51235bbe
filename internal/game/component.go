package game

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Component is a unit of state attached to a Node. Implementations embed
// Base.
type Component interface {
	Node() *Node
	attach(*Node)
}

// Base links a component to its node. The link is not part of the
// component's saved state.
type Base struct {
	node *Node
}

func (b *Base) Node() *Node {
	return b.node
}

func (b *Base) attach(n *Node) {
	b.node = n
}

// Updater components are stepped once per world tick.
type Updater interface {
	Update(w *World, dt float64)
}

// Initializer components are called once after the tree they belong to is
// built and populated.
type Initializer interface {
	Init(w *World) error
}

type Factory func() Component

// Registry maps zone component type names to constructors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in components.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.factories["Transform"] = func() Component { return &Transform{Scale: Vec2{X: 1, Y: 1}} }
	r.factories["Body"] = func() Component { return &Body{} }
	r.factories["Mobile"] = func() Component { return &Mobile{} }
	r.factories["Controller"] = func() Component { return &Controller{} }
	r.factories["Spawner"] = func() Component { return &Spawner{} }
	return r
}

// RegisterComponent adds a component type under name.
func (r *Registry) RegisterComponent(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.factories[name] = f
	return nil
}

func (r *Registry) New(name string) (Component, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	return f(), nil
}

// Types returns the registered names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}
