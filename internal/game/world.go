package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"sync"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/entitypath"
	"github.com/pixil98/go-savestate/internal/snapshot"
	"github.com/pixil98/go-savestate/internal/storage"
)

const DefaultTimeStep = 100 * time.Millisecond

// ComponentType is the interface every entity reference must satisfy.
var ComponentType = reflect.TypeFor[Component]()

// World owns the live entity graph. It holds two trees: persistent nodes,
// built once and kept across reloads, and the current context, rebuilt from
// a zone each time one is entered.
//
// State, ContextID, RequestReload, Enter, Hold, OnContextEntered and Tick
// take the world lock themselves. Everything else reads or mutates the graph
// and must run inside Do or from a component callback.
type World struct {
	mu sync.Mutex

	zones          storage.Storer[*Zone]
	registry       *Registry
	publisher      Publisher
	persistentZone string
	timeStep       time.Duration
	authoring      *snapshot.Selector

	state      State
	contextID  string
	persistent *Node
	context    *Node
	ticks      uint64
	holds      int

	pending   string
	reloading bool

	rng  *rand.PCG
	rand *rand.Rand

	listeners    map[uint64]func(contextID string)
	nextListener uint64
}

func NewWorld(zones storage.Storer[*Zone], opts ...WorldOpt) *World {
	w := &World{
		zones:     zones,
		registry:  NewRegistry(),
		timeStep:  DefaultTimeStep,
		authoring: snapshot.NewSelector(snapshot.WithReferenceType(ComponentType)),
		rng:       rand.NewPCG(uint64(time.Now().UnixNano()), 0),
		listeners: map[uint64]func(string){},
	}

	for _, opt := range opts {
		opt(w)
	}

	w.rand = rand.New(w.rng)
	return w
}

func (w *World) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *World) ContextID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.contextID
}

// Do runs fn with exclusive access to the graph.
func (w *World) Do(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// Hold stops simulation steps until release is called. Reloads still run
// while held.
func (w *World) Hold() (release func()) {
	w.mu.Lock()
	w.holds++
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.holds--
			w.mu.Unlock()
		})
	}
}

// OnContextEntered registers fn to run after every completed reload, on the
// ticking goroutine and outside the world lock.
func (w *World) OnContextEntered(fn func(contextID string)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// RequestReload queues a rebuild of the context from zone id. The reload
// runs on the next Tick.
func (w *World) RequestReload(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.reloading {
		return fmt.Errorf("%w: %s", ErrReloadPending, w.pending)
	}
	w.pending = id
	w.reloading = true
	w.state = StateLoading
	return nil
}

// Enter loads zone id immediately.
func (w *World) Enter(ctx context.Context, id string) error {
	w.mu.Lock()
	w.state = StateLoading
	err := w.load(id)
	w.ticks++
	tick := w.ticks
	w.mu.Unlock()

	if err != nil {
		return err
	}
	w.entered(ctx, id, tick)
	return nil
}

// Tick performs a pending reload or advances the simulation by one step.
func (w *World) Tick(ctx context.Context) error {
	w.mu.Lock()

	var entered string
	switch {
	case w.reloading:
		id := w.pending
		w.pending, w.reloading = "", false
		if err := w.load(id); err != nil {
			slog.ErrorContext(ctx, "reloading context", "context", id, "error", err)
		} else {
			entered = id
		}
	case w.state == StatePlaying && w.holds == 0:
		w.step()
	}

	w.ticks++
	tick := w.ticks
	w.mu.Unlock()

	if entered != "" {
		w.entered(ctx, entered, tick)
	}
	return nil
}

func (w *World) entered(ctx context.Context, id string, tick uint64) {
	w.mu.Lock()
	fns := make([]func(string), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "context entered", "context", id, "tick", tick)

	for _, fn := range fns {
		fn(id)
	}

	if w.publisher == nil {
		return
	}
	data, err := json.Marshal(ContextEvent{ContextID: id, Tick: tick})
	if err != nil {
		slog.ErrorContext(ctx, "marshalling context event", "error", err)
		return
	}
	if err := w.publisher.Publish(SubjectContextEntered, data); err != nil {
		slog.WarnContext(ctx, "publishing context event", "error", err)
	}
}

// load builds the context for zone id. On failure the previous context is
// kept. Callers hold the lock.
func (w *World) load(id string) error {
	prevCtx, prevID := w.context, w.contextID
	fail := func(err error) error {
		w.context, w.contextID = prevCtx, prevID
		if prevCtx != nil {
			w.state = StatePlaying
		} else {
			w.state = StateInactive
		}
		return err
	}

	zone := w.zones.Get(id)
	if zone == nil {
		return fail(fmt.Errorf("%w: %s", ErrZoneNotFound, id))
	}
	if err := zone.Validate(); err != nil {
		return fail(fmt.Errorf("zone %s: %w", id, err))
	}

	if w.persistent == nil {
		w.persistent = newRoot()
		if err := w.buildPersistent(); err != nil {
			w.persistent = nil
			return fail(fmt.Errorf("building persistent nodes: %w", err))
		}
	}

	if w.persistent != nil {
		for _, n := range zone.Nodes {
			if w.persistent.Child(n.Name) != nil {
				return fail(fmt.Errorf("building zone %s: %w: %s", id, ErrShadowedNode, n.Name))
			}
		}
	}

	w.context, w.contextID = newRoot(), id
	if err := w.instantiate(w.context, zone.Nodes, ""); err != nil {
		return fail(fmt.Errorf("building zone %s: %w", id, err))
	}

	w.state = StatePlaying
	return nil
}

func (w *World) buildPersistent() error {
	if w.persistentZone == "" {
		return nil
	}
	zone := w.zones.Get(w.persistentZone)
	if zone == nil {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, w.persistentZone)
	}
	if err := zone.Validate(); err != nil {
		return err
	}
	return w.instantiate(w.persistent, zone.Nodes, "")
}

// instantiate builds specs under parent. Top-level node names get suffix.
// Component data is decoded once the whole subtree exists so references
// between new components resolve.
func (w *World) instantiate(parent *Node, specs []NodeSpec, suffix string) error {
	type pendingData struct {
		c    Component
		data snapshot.FieldMap
	}
	var created []pendingData

	var build func(parent *Node, specs []NodeSpec, suffix string) error
	build = func(parent *Node, specs []NodeSpec, suffix string) error {
		for _, spec := range specs {
			n := parent.AddChild(spec.Name + suffix)
			for _, cs := range spec.Components {
				c, err := w.registry.New(cs.Type)
				if err != nil {
					return fmt.Errorf("node %s: %w", n.Path(), err)
				}
				n.AddComponent(c)
				created = append(created, pendingData{c: c, data: cs.Data})
			}
			if err := build(n, spec.Children, ""); err != nil {
				return err
			}
		}
		return nil
	}

	if err := build(parent, specs, suffix); err != nil {
		return err
	}

	pop := snapshot.NewPopulator(w.authoring, w)
	el := errors.NewErrorList()
	for _, p := range created {
		if len(p.data) > 0 {
			el.Add(pop.Populate(p.c, p.data))
		}
	}
	for _, p := range created {
		if in, ok := p.c.(Initializer); ok {
			el.Add(in.Init(w))
		}
	}
	return el.Err()
}

// step runs updaters, then integrates bodies.
func (w *World) step() {
	dt := w.timeStep.Seconds()

	var updaters []Updater
	var bodies []*Body
	for _, root := range w.roots() {
		root.walk(func(n *Node) {
			for _, c := range n.components {
				if u, ok := c.(Updater); ok {
					updaters = append(updaters, u)
				}
				if b, ok := c.(*Body); ok {
					bodies = append(bodies, b)
				}
			}
		})
	}

	for _, u := range updaters {
		u.Update(w, dt)
	}
	for _, b := range bodies {
		b.integrate(dt)
	}
}

// roots returns the trees in lookup order: persistent first.
func (w *World) roots() []*Node {
	var roots []*Node
	if w.persistent != nil {
		roots = append(roots, w.persistent)
	}
	if w.context != nil {
		roots = append(roots, w.context)
	}
	return roots
}

// Persistent returns the container of persistent top-level nodes, or nil
// before the first load.
func (w *World) Persistent() *Node {
	return w.persistent
}

// Context returns the container of the current context's top-level nodes.
func (w *World) Context() *Node {
	return w.context
}

// PathOf returns the entity path of a component. It returns "" when entity
// is not an attached component, or when its path resolves to some other
// component.
func (w *World) PathOf(entity any) string {
	c, ok := entity.(Component)
	if !ok || reflect.ValueOf(c).IsNil() {
		return ""
	}
	n := c.Node()
	if n == nil || !n.attached() {
		return ""
	}
	p := entitypath.New(n.Segments(), snapshot.TypeTag(reflect.TypeOf(c)))
	if w.lookup(p) != c {
		return ""
	}
	return p.String()
}

// Resolve finds the component at path, searching persistent nodes first.
func (w *World) Resolve(path string) (any, bool) {
	p, err := entitypath.Parse(path)
	if err != nil {
		return nil, false
	}
	c := w.lookup(p)
	return c, c != nil
}

func (w *World) lookup(p entitypath.Path) Component {
	for _, root := range w.roots() {
		n := root.find(p.Nodes)
		if n == nil {
			continue
		}
		for _, c := range n.components {
			if snapshot.TypeTag(reflect.TypeOf(c)) == p.Type {
				return c
			}
		}
	}
	return nil
}

// Rand is the world's random source. Its state is part of a savestate.
func (w *World) Rand() *rand.Rand {
	return w.rand
}

func (w *World) RandState() ([]byte, error) {
	return w.rng.MarshalBinary()
}

func (w *World) SetRandState(b []byte) error {
	return w.rng.UnmarshalBinary(b)
}

func (w *World) Registry() *Registry {
	return w.registry
}
