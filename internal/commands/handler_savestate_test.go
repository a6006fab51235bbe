package commands

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/savestate"
	"github.com/pixil98/go-savestate/internal/storage"
	"github.com/pixil98/go-testutil"
)

// fakeSavestates records calls as "op slot layer [name filter]".
type fakeSavestates struct {
	calls []string
	layer string
	pages map[int][]savestate.PageEntry
}

func (f *fakeSavestates) CreateSavestate(_ context.Context, name string, slot int, layer string, filter game.SaveFilter) (savestate.Saved, error) {
	f.calls = append(f.calls, fmt.Sprintf("save %d %s %q %s", slot, layer, name, filter))
	return savestate.Saved{Name: name, Slot: slot, Layer: layer}, nil
}

func (f *fakeSavestates) LoadSlot(_ context.Context, slot int, layer string) (savestate.Result, error) {
	f.calls = append(f.calls, fmt.Sprintf("load %d %s", slot, layer))
	return savestate.Result{}, savestate.ErrNoSavestate
}

func (f *fakeSavestates) DeleteSlot(_ context.Context, slot int, layer string) error {
	f.calls = append(f.calls, fmt.Sprintf("delete %d %s", slot, layer))
	return nil
}

func (f *fakeSavestates) Page(_ string, page int) ([]savestate.PageEntry, error) {
	return f.pages[page], nil
}

func (f *fakeSavestates) Status() savestate.Status {
	return savestate.Status{State: savestate.StatusIdle, Layer: f.layer, Context: "camp", World: "playing"}
}

func (f *fakeSavestates) Layer() string { return f.layer }

func (f *fakeSavestates) SetLayer(layer string) error {
	if err := storage.ValidateLayer(layer); err != nil {
		return err
	}
	f.layer = layer
	return nil
}

func (f *fakeSavestates) CycleLayer() string {
	if f.layer == "main" {
		f.layer = "secondary"
	} else {
		f.layer = "main"
	}
	return f.layer
}

func savestateCommands() commandStore {
	slot := InputSpec{Name: "slot", Type: InputTypeNumber, Required: true}
	return commandStore{
		"save": {Handler: "save", Inputs: []InputSpec{slot, {Name: "name", Type: InputTypeString, Rest: true}}},
		"quicksave": {Handler: "save", Config: map[string]string{
			"slot":   "0",
			"name":   "quick {{ .Actor }}",
			"layer":  "quick",
			"filter": "all",
		}},
		"load":   {Handler: "load", Inputs: []InputSpec{slot}},
		"delete": {Handler: "delete", Inputs: []InputSpec{slot}},
		"list":   {Handler: "list", Inputs: []InputSpec{{Name: "page", Type: InputTypeNumber}}},
		"layer":  {Handler: "layer", Inputs: []InputSpec{{Name: "name", Type: InputTypeString}}},
		"status": {Handler: "status"},
		"filter": {Handler: "filter", Inputs: []InputSpec{{Name: "name", Type: InputTypeString}}},
	}
}

func newSavestateHandler(t *testing.T, states Savestates) *Handler {
	t.Helper()
	h := NewHandler(savestateCommands(), states.Layer)
	factories := map[string]HandlerFactory{
		"save":   NewSaveHandlerFactory(states),
		"load":   NewLoadHandlerFactory(states),
		"delete": NewDeleteHandlerFactory(states),
		"list":   NewListHandlerFactory(states),
		"layer":  NewLayerHandlerFactory(states),
		"status": NewStatusHandlerFactory(states),
		"filter": &FilterHandlerFactory{},
	}
	for name, f := range factories {
		if err := h.RegisterFactory(name, f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := h.CompileAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

func TestSavestateHandlers(t *testing.T) {
	tests := map[string]struct {
		cmd      string
		args     []string
		filter   game.SaveFilter
		expCalls string
		expOut   string
		expErr   string
	}{
		"save with name": {
			cmd:      "save",
			args:     []string{"2", "before", "boss"},
			expCalls: `save 2 main "before boss" player`,
		},
		"save uses actor filter": {
			cmd:      "save",
			args:     []string{"1"},
			filter:   game.FilterMobiles,
			expCalls: `save 1 main "" mobiles`,
		},
		"quicksave from config": {
			cmd:      "quicksave",
			expCalls: `save 0 quick "quick alice" all`,
		},
		"save negative slot": {
			cmd:    "save",
			args:   []string{"-1"},
			expErr: "Slot must not be negative.",
		},
		"load": {
			cmd:      "load",
			args:     []string{"4"},
			expCalls: "load 4 main",
		},
		"delete": {
			cmd:      "delete",
			args:     []string{"5"},
			expCalls: "delete 5 main",
		},
		"list first page": {
			cmd:    "list",
			expOut: "Savestates in layer main, page 1:\n  0. start\n  1. (free)\n\n",
		},
		"list page zero": {
			cmd:    "list",
			args:   []string{"0"},
			expErr: "Pages start at 1.",
		},
		"layer cycles": {
			cmd:    "layer",
			expOut: "Savestate layer is now secondary.\n\n",
		},
		"layer by name": {
			cmd:    "layer",
			args:   []string{"boss_fights"},
			expOut: "Savestate layer is now boss_fights.\n\n",
		},
		"layer invalid": {
			cmd:    "layer",
			args:   []string{"../x"},
			expErr: `"../x" is not a valid layer name.`,
		},
		"status": {
			cmd:    "status",
			filter: game.FilterAll,
			expOut: "Savestate: idle\nLayer: main\nSave filter: all\nContext: camp (playing)\n\n",
		},
		"filter shows": {
			cmd:    "filter",
			expOut: "Saves start from: player\n\n",
		},
		"filter sets": {
			cmd:    "filter",
			args:   []string{"mobiles"},
			expOut: "Saves start from: mobiles\n\n",
		},
		"filter unknown": {
			cmd:    "filter",
			args:   []string{"pets"},
			expErr: `Unknown filter "pets"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			states := &fakeSavestates{
				layer: "main",
				pages: map[int][]savestate.PageEntry{0: {{Slot: 0, Name: "start"}, {Slot: 1, Free: true}}},
			}
			h := newSavestateHandler(t, states)
			actor, out := newTestActor()
			actor.Filter = tt.filter

			err := h.Exec(context.Background(), actor, tt.cmd, tt.args...)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "calls", strings.Join(states.calls, ";"), tt.expCalls)
			testutil.AssertEqual(t, "output", out.String(), tt.expOut)
		})
	}
}

func TestSavestateHandlers_ValidateConfig(t *testing.T) {
	tests := map[string]struct {
		factory HandlerFactory
		config  map[string]string
		expErr  string
	}{
		"save bad filter": {
			factory: NewSaveHandlerFactory(&fakeSavestates{}),
			config:  map[string]string{"filter": "pets"},
			expErr:  "unknown save filter",
		},
		"list bad format": {
			factory: NewListHandlerFactory(&fakeSavestates{}),
			config:  map[string]string{"format": "{{ .Layer"},
			expErr:  "format",
		},
		"status custom format": {
			factory: NewStatusHandlerFactory(&fakeSavestates{}),
			config:  map[string]string{"format": "{{ .State }}"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.factory.ValidateConfig(tt.config)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
