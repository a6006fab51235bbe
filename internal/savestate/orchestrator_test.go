package savestate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/snapshot"
	"github.com/pixil98/go-testutil"
)

type counter struct {
	N int
}

type fakeHost struct {
	mu sync.Mutex

	state     game.State
	entities  map[string]any
	announce  string
	reloadErr error
	seedErr   error
	onState   func()

	listeners map[int]func(string)
	next      int
	holds     int
	reloads   []string
	seed      []byte
}

func newFakeHost(announce string) *fakeHost {
	return &fakeHost{
		state:     game.StatePlaying,
		entities:  map[string]any{"counter@counter": &counter{N: 1}},
		announce:  announce,
		listeners: map[int]func(string){},
	}
}

func (h *fakeHost) Resolve(path string) (any, bool) {
	e, ok := h.entities[path]
	return e, ok
}

func (h *fakeHost) State() game.State {
	if h.onState != nil {
		h.onState()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHost) Hold() func() {
	h.mu.Lock()
	h.holds++
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.holds--
		h.mu.Unlock()
	}
}

func (h *fakeHost) OnContextEntered(fn func(string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *fakeHost) RequestReload(id string) error {
	if h.reloadErr != nil {
		return h.reloadErr
	}

	h.mu.Lock()
	h.reloads = append(h.reloads, id)
	fns := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	announce := h.announce
	h.mu.Unlock()

	if announce != "" {
		go func() {
			for _, fn := range fns {
				fn(announce)
			}
		}()
	}
	return nil
}

func (h *fakeHost) Do(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func (h *fakeHost) SetRandState(b []byte) error {
	if h.seedErr != nil {
		return h.seedErr
	}
	h.seed = b
	return nil
}

func counterRecord(n string) *snapshot.Record {
	return &snapshot.Record{
		ContextID: "camp",
		Snapshots: []snapshot.Snapshot{
			{Path: "counter@counter", Data: snapshot.FieldMap{"N": json.RawMessage(n)}},
			{Path: "gone@counter", Data: snapshot.FieldMap{"N": json.RawMessage("9")}},
		},
		RNGSeed: []byte("seed"),
	}
}

func TestOrchestrator_Restore(t *testing.T) {
	host := newFakeHost("camp")
	o := NewOrchestrator(host, snapshot.NewSelector(), WithReloadTimeout(time.Second))

	res, err := o.Restore(context.Background(), counterRecord("7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "applied", res.Applied, 1)
	testutil.AssertEqual(t, "skipped", res.Skipped, 1)
	testutil.AssertEqual(t, "counter", host.entities["counter@counter"].(*counter).N, 7)
	testutil.AssertEqual(t, "seed", string(host.seed), "seed")
	testutil.AssertEqual(t, "reloaded", len(host.reloads), 1)
	testutil.AssertEqual(t, "released", host.holds, 0)
	testutil.AssertEqual(t, "restoring", o.Restoring(), false)
	testutil.AssertEqual(t, "listeners", len(host.listeners), 0)
}

func TestOrchestrator_RestoreSeedFailure(t *testing.T) {
	host := newFakeHost("camp")
	host.seedErr = errors.New("bad seed")
	o := NewOrchestrator(host, snapshot.NewSelector())

	res, err := o.Restore(context.Background(), counterRecord("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "applied", res.Applied, 1)
}

func TestOrchestrator_RestoreErrors(t *testing.T) {
	tests := map[string]struct {
		setup  func(h *fakeHost, o *Orchestrator)
		ctx    func() context.Context
		rec    *snapshot.Record
		expErr string
		expN   int
	}{
		"already restoring": {
			setup:  func(_ *fakeHost, o *Orchestrator) { o.restoring.Store(true) },
			expErr: "already being restored",
			expN:   1,
		},
		"invalid record": {
			rec:    &snapshot.Record{},
			expErr: "contextId is required",
			expN:   1,
		},
		"world not playing": {
			setup:  func(h *fakeHost, _ *Orchestrator) { h.state = game.StateLoading },
			expErr: "world is not playing: loading",
			expN:   1,
		},
		"reload refused": {
			setup:  func(h *fakeHost, _ *Orchestrator) { h.reloadErr = game.ErrReloadPending },
			expErr: "requesting reload",
			expN:   1,
		},
		"reload never completes": {
			setup:  func(h *fakeHost, _ *Orchestrator) { h.announce = "" },
			expErr: "timed out",
			expN:   1,
		},
		"other context entered": {
			setup:  func(h *fakeHost, _ *Orchestrator) { h.announce = "forest" },
			expErr: "timed out",
			expN:   1,
		},
		"context cancelled": {
			setup: func(h *fakeHost, o *Orchestrator) {
				h.announce = ""
				o.timeout = time.Hour
			},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			expErr: "context canceled",
			expN:   1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			host := newFakeHost("camp")
			o := NewOrchestrator(host, snapshot.NewSelector(), WithReloadTimeout(20*time.Millisecond))
			if tt.setup != nil {
				tt.setup(host, o)
			}
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			rec := tt.rec
			if rec == nil {
				rec = counterRecord("5")
			}

			_, err := o.Restore(ctx, rec)
			testutil.AssertErrorContains(t, err, tt.expErr)

			testutil.AssertEqual(t, "counter untouched", host.entities["counter@counter"].(*counter).N, tt.expN)
			testutil.AssertEqual(t, "released", host.holds, 0)
		})
	}
}

func TestOrchestrator_NotBusyWhileCheckingWorld(t *testing.T) {
	host := newFakeHost("camp")
	host.state = game.StateLoading
	o := NewOrchestrator(host, snapshot.NewSelector())

	var busy bool
	host.onState = func() { busy = o.Restoring() }

	_, err := o.Restore(context.Background(), counterRecord("5"))
	testutil.AssertErrorContains(t, err, ErrWorldNotReady.Error())
	testutil.AssertEqual(t, "busy during check", busy, false)
	testutil.AssertEqual(t, "reloads", len(host.reloads), 0)
}
