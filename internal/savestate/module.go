package savestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/snapshot"
	"github.com/pixil98/go-savestate/internal/storage"
)

const (
	SlotsPerPage = 10

	StatusIdle      = "idle"
	StatusRestoring = "restoring"

	nameTimeLayout = "2006-01-02 15-04-05"
)

// DefaultLayers are the layers CycleLayer steps through.
var DefaultLayers = []string{"main", "secondary"}

// World is everything the module needs from the live game.
type World interface {
	Host
	snapshot.Addresser
	ContextID() string
	Roots(f game.SaveFilter) []any
	RandState() ([]byte, error)
}

// Store persists savestate records by slot and layer.
type Store interface {
	Save(name string, rec *snapshot.Record, slot int, layer string) error
	List(layer string) ([]storage.SlotInfo, error)
	GetSlot(slot int, layer string) (*snapshot.Record, storage.SlotInfo, bool, error)
	Delete(slot int, layer string) error
}

// Notifier delivers short user-facing messages about savestate operations.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Saved describes a savestate that was just written.
type Saved struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slot      int    `json:"slot"`
	Layer     string `json:"layer"`
	ContextID string `json:"contextId"`
	Snapshots int    `json:"snapshots"`
}

// Status is a point-in-time view of the module.
type Status struct {
	State   string `json:"state"`
	Layer   string `json:"layer"`
	Context string `json:"context"`
	World   string `json:"world"`
}

// PageEntry is one slot of a paged listing.
type PageEntry struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
	Free bool   `json:"free"`
}

// Module ties capture, storage and restore together behind the operations
// exposed to players and operators.
type Module struct {
	world    World
	store    Store
	capturer *snapshot.Capturer
	orch     *Orchestrator

	notifiers []Notifier
	layers    []string
	now       func() time.Time

	mu    sync.RWMutex
	layer string
}

func NewModule(world World, store Store, opts ...ModuleOpt) *Module {
	cfg := &moduleConfig{
		layers: DefaultLayers,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sel := snapshot.NewSelector(append(DefaultRules(), cfg.rules...)...)

	return &Module{
		world:     world,
		store:     store,
		capturer:  snapshot.NewCapturer(sel, world),
		orch:      NewOrchestrator(world, sel, cfg.orchOpts...),
		notifiers: cfg.notifiers,
		layers:    cfg.layers,
		now:       cfg.now,
		layer:     cfg.layers[0],
	}
}

// CreateSavestate captures the world from the roots selected by filter and
// stores it in slot. An empty name becomes "{context} {timestamp}".
func (m *Module) CreateSavestate(ctx context.Context, name string, slot int, layer string, filter game.SaveFilter) (Saved, error) {
	saved, err := m.create(ctx, name, slot, layer, filter)
	if err != nil {
		m.fail(ctx, "saving savestate", err, "slot", slot, "layer", layer)
		return Saved{}, err
	}

	slog.InfoContext(ctx, "savestate created", "id", saved.ID, "name", saved.Name, "slot", slot, "layer", layer, "snapshots", saved.Snapshots)
	m.notify(ctx, fmt.Sprintf("Saved %q to slot %d", saved.Name, slot))
	return saved, nil
}

func (m *Module) create(ctx context.Context, name string, slot int, layer string, filter game.SaveFilter) (Saved, error) {
	if m.orch.Restoring() {
		return Saved{}, ErrBusy
	}
	if st := m.world.State(); st != game.StatePlaying {
		return Saved{}, fmt.Errorf("%w: %s", ErrWorldNotReady, st)
	}

	contextID := m.world.ContextID()
	if name == "" {
		name = fmt.Sprintf("%s %s", contextID, m.now().Format(nameTimeLayout))
	}

	var opts []snapshot.CaptureOpt
	if filter == game.FilterPlayer {
		opts = append(opts, snapshot.WithMaxDepth(0))
	}

	rec := &snapshot.Record{ID: uuid.NewString(), ContextID: contextID}
	var rngErr error
	m.world.Do(func() {
		rec.Snapshots = m.capturer.Capture(m.world.Roots(filter), opts...)
		rec.RNGSeed, rngErr = m.world.RandState()
	})
	if rngErr != nil {
		return Saved{}, fmt.Errorf("capturing random state: %w", rngErr)
	}

	if err := m.store.Save(name, rec, slot, layer); err != nil {
		return Saved{}, fmt.Errorf("storing savestate: %w", err)
	}

	return Saved{
		ID:        rec.ID,
		Name:      name,
		Slot:      slot,
		Layer:     layer,
		ContextID: contextID,
		Snapshots: len(rec.Snapshots),
	}, nil
}

// LoadSavestate restores rec onto the world.
func (m *Module) LoadSavestate(ctx context.Context, rec *snapshot.Record) (Result, error) {
	res, err := m.orch.Restore(ctx, rec)
	if err != nil {
		m.fail(ctx, "loading savestate", err, "context", rec.ContextID)
		return Result{}, err
	}
	m.notify(ctx, fmt.Sprintf("Loaded savestate in %s (%d restored, %d missing)", rec.ContextID, res.Applied, res.Skipped))
	return res, nil
}

// LoadSlot restores the savestate stored in slot.
func (m *Module) LoadSlot(ctx context.Context, slot int, layer string) (Result, error) {
	rec, info, ok, err := m.store.GetSlot(slot, layer)
	if err == nil && !ok {
		err = fmt.Errorf("%w %d", ErrNoSavestate, slot)
	}
	if err != nil {
		m.fail(ctx, "loading savestate", err, "slot", slot, "layer", layer)
		return Result{}, err
	}

	if info.Claims > 1 {
		slog.WarnContext(ctx, "multiple savestates in slot", "slot", slot, "layer", layer, "count", info.Claims, "picked", info.Name)
		m.notify(ctx, fmt.Sprintf("Multiple savestates found at slot %d, picking %q", slot, info.Name))
	}

	res, err := m.orch.Restore(ctx, rec)
	if err != nil {
		m.fail(ctx, "loading savestate", err, "slot", slot, "layer", layer, "name", info.Name)
		return Result{}, err
	}

	slog.InfoContext(ctx, "savestate loaded", "name", info.Name, "slot", slot, "layer", layer)
	m.notify(ctx, fmt.Sprintf("Loaded %q from slot %d", info.Name, slot))
	return res, nil
}

// DeleteSlot empties slot.
func (m *Module) DeleteSlot(ctx context.Context, slot int, layer string) error {
	if err := m.store.Delete(slot, layer); err != nil {
		m.fail(ctx, "deleting savestate", err, "slot", slot, "layer", layer)
		return err
	}
	m.notify(ctx, fmt.Sprintf("Deleted slot %d", slot))
	return nil
}

func (m *Module) List(layer string) ([]storage.SlotInfo, error) {
	return m.store.List(layer)
}

// Page lists slots page*SlotsPerPage through the end of that page. Slots
// without a savestate are marked free.
func (m *Module) Page(layer string, page int) ([]PageEntry, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must not be negative")
	}

	infos, err := m.store.List(layer)
	if err != nil {
		return nil, err
	}

	first := page * SlotsPerPage
	entries := make([]PageEntry, SlotsPerPage)
	for i := range entries {
		entries[i] = PageEntry{Slot: first + i, Free: true}
	}
	for _, info := range infos {
		i := info.Slot - first
		if !info.Indexed || i < 0 || i >= SlotsPerPage || !entries[i].Free {
			continue
		}
		entries[i].Name = info.Name
		entries[i].Free = false
	}
	return entries, nil
}

// Restoring reports whether a savestate is being loaded. Input that changes
// the world's context should wait until it returns false.
func (m *Module) Restoring() bool {
	return m.orch.Restoring()
}

func (m *Module) Status() Status {
	st := StatusIdle
	if m.Restoring() {
		st = StatusRestoring
	}
	return Status{
		State:   st,
		Layer:   m.Layer(),
		Context: m.world.ContextID(),
		World:   m.world.State().String(),
	}
}

// Layer is the layer triggers use when they do not name one.
func (m *Module) Layer() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layer
}

func (m *Module) SetLayer(layer string) error {
	if err := storage.ValidateLayer(layer); err != nil {
		return err
	}
	m.mu.Lock()
	m.layer = layer
	m.mu.Unlock()
	return nil
}

// CycleLayer moves to the next configured layer and returns it.
func (m *Module) CycleLayer() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.layers, m.layer)
	m.layer = m.layers[(i+1)%len(m.layers)]
	return m.layer
}

// AddNotifier registers n for every later notification.
func (m *Module) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

func (m *Module) notify(ctx context.Context, msg string) {
	m.mu.RLock()
	notifiers := slices.Clone(m.notifiers)
	m.mu.RUnlock()

	for _, n := range notifiers {
		n.Notify(ctx, msg)
	}
}

func (m *Module) fail(ctx context.Context, op string, err error, args ...any) {
	slog.ErrorContext(ctx, op, append(args, "error", err)...)

	switch {
	case errors.Is(err, ErrBusy):
		m.notify(ctx, "A savestate is already loading")
	case errors.Is(err, ErrNoSavestate):
		m.notify(ctx, err.Error())
	default:
		m.notify(ctx, fmt.Sprintf("Failed %s: %v", op, err))
	}
}
