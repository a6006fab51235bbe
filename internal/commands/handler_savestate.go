package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/savestate"
)

// Savestates is the savestate module as seen by console commands.
type Savestates interface {
	CreateSavestate(ctx context.Context, name string, slot int, layer string, filter game.SaveFilter) (savestate.Saved, error)
	LoadSlot(ctx context.Context, slot int, layer string) (savestate.Result, error)
	DeleteSlot(ctx context.Context, slot int, layer string) error
	Page(layer string, page int) ([]savestate.PageEntry, error)
	Status() savestate.Status
	Layer() string
	SetLayer(layer string) error
	CycleLayer() string
}

const (
	defaultListFormat = `Savestates in layer {{ .Layer | default "(root)" }}, page {{ .Page }}:
{{- range .Entries }}
{{ printf "%3d" .Slot }}. {{ if .Free }}(free){{ else }}{{ .Name }}{{ end }}
{{- end }}`

	defaultStatusFormat = `Savestate: {{ .State }}
Layer: {{ .Layer | default "(root)" }}
Save filter: {{ .Filter }}
Context: {{ .Context | default "none" }} ({{ .World }})`
)

// Save, load and delete report failures through the module's notifiers, so
// their handlers only return input errors.

// slotOf reads the slot from the "slot" input or config.
func slotOf(c *CommandContext) (int, error) {
	slot, ok, err := c.Int("slot")
	if err != nil {
		return 0, NewUserErrorf("Bad slot: %v", err)
	}
	if !ok {
		return 0, NewUserError("Which slot?")
	}
	if slot < 0 {
		return 0, NewUserError("Slot must not be negative.")
	}
	return slot, nil
}

// layerOf reads the layer from config, defaulting to the module's active one.
func layerOf(c *CommandContext, states Savestates) string {
	if layer, ok := c.Config["layer"]; ok {
		return layer
	}
	return states.Layer()
}

func validateFilter(config map[string]string) error {
	if f, ok := config["filter"]; ok {
		if _, err := game.ParseSaveFilter(f); err != nil {
			return err
		}
	}
	return nil
}

func validateFormat(config map[string]string, key string) error {
	if err := parseTemplate(config[key]); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// SaveHandlerFactory creates handlers that write a savestate.
// Config:
//   - slot (optional): used when the command has no slot input
//   - name (optional): used when the command has no name input
//   - layer (optional): overrides the active layer
//   - filter (optional): overrides the actor's save filter
type SaveHandlerFactory struct {
	states Savestates
}

func NewSaveHandlerFactory(states Savestates) *SaveHandlerFactory {
	return &SaveHandlerFactory{states: states}
}

func (f *SaveHandlerFactory) ValidateConfig(config map[string]string) error {
	return validateFilter(config)
}

func (f *SaveHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		slot, err := slotOf(c)
		if err != nil {
			return err
		}

		filter := c.Actor.Filter
		if raw, ok := c.Config["filter"]; ok {
			if filter, err = game.ParseSaveFilter(raw); err != nil {
				return err
			}
		}

		_, _ = f.states.CreateSavestate(ctx, c.String("name"), slot, layerOf(c, f.states), filter)
		return nil
	}, nil
}

// LoadHandlerFactory creates handlers that restore a savestate.
// Config:
//   - slot (optional): used when the command has no slot input
//   - layer (optional): overrides the active layer
type LoadHandlerFactory struct {
	states Savestates
}

func NewLoadHandlerFactory(states Savestates) *LoadHandlerFactory {
	return &LoadHandlerFactory{states: states}
}

func (f *LoadHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *LoadHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		slot, err := slotOf(c)
		if err != nil {
			return err
		}

		_, _ = f.states.LoadSlot(ctx, slot, layerOf(c, f.states))
		return nil
	}, nil
}

// DeleteHandlerFactory creates handlers that empty a slot.
type DeleteHandlerFactory struct {
	states Savestates
}

func NewDeleteHandlerFactory(states Savestates) *DeleteHandlerFactory {
	return &DeleteHandlerFactory{states: states}
}

func (f *DeleteHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *DeleteHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		slot, err := slotOf(c)
		if err != nil {
			return err
		}

		_ = f.states.DeleteSlot(ctx, slot, layerOf(c, f.states))
		return nil
	}, nil
}

// ListHandlerFactory creates handlers that show one page of slots. Pages are
// numbered from 1.
// Config:
//   - format (optional): template rendered with a ListView
type ListHandlerFactory struct {
	states Savestates
}

func NewListHandlerFactory(states Savestates) *ListHandlerFactory {
	return &ListHandlerFactory{states: states}
}

func (f *ListHandlerFactory) ValidateConfig(config map[string]string) error {
	return validateFormat(config, formatKey)
}

func (f *ListHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		page, ok, err := c.Int("page")
		if err != nil {
			return NewUserErrorf("Bad page: %v", err)
		}
		if !ok {
			page = 1
		}
		if page < 1 {
			return NewUserError("Pages start at 1.")
		}

		layer := layerOf(c, f.states)
		entries, err := f.states.Page(layer, page-1)
		if err != nil {
			return NewUserErrorf("Unable to list savestates: %v", err)
		}

		format := c.Config[formatKey]
		if format == "" {
			format = defaultListFormat
		}
		out, err := ExpandTemplate(format, &ListView{Layer: layer, Page: page, Entries: entries})
		if err != nil {
			return fmt.Errorf("rendering savestate list: %w", err)
		}
		return c.Actor.Write(out)
	}, nil
}

// LayerHandlerFactory creates handlers that switch the active layer. With no
// name input the next configured layer is chosen.
type LayerHandlerFactory struct {
	states Savestates
}

func NewLayerHandlerFactory(states Savestates) *LayerHandlerFactory {
	return &LayerHandlerFactory{states: states}
}

func (f *LayerHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *LayerHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		var layer string
		if name, ok := c.Inputs["name"].(string); ok {
			if err := f.states.SetLayer(name); err != nil {
				return NewUserErrorf("%q is not a valid layer name.", name)
			}
			layer = name
		} else {
			layer = f.states.CycleLayer()
		}

		if layer == "" {
			layer = "(root)"
		}
		return c.Actor.Write(fmt.Sprintf("Savestate layer is now %s.", layer))
	}, nil
}

// StatusHandlerFactory creates handlers that describe the module's state.
// Config:
//   - format (optional): template rendered with a StatusView
type StatusHandlerFactory struct {
	states Savestates
}

func NewStatusHandlerFactory(states Savestates) *StatusHandlerFactory {
	return &StatusHandlerFactory{states: states}
}

func (f *StatusHandlerFactory) ValidateConfig(config map[string]string) error {
	return validateFormat(config, formatKey)
}

func (f *StatusHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		format := c.Config[formatKey]
		if format == "" {
			format = defaultStatusFormat
		}

		view := &StatusView{
			Status: f.states.Status(),
			Actor:  c.Actor.Name,
			Filter: c.Actor.Filter.String(),
		}
		out, err := ExpandTemplate(format, view)
		if err != nil {
			return fmt.Errorf("rendering status: %w", err)
		}
		return c.Actor.Write(out)
	}, nil
}

// FilterHandlerFactory creates handlers that show or set which entities the
// actor's saves start from.
type FilterHandlerFactory struct{}

func (f *FilterHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *FilterHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		if name, ok := c.Inputs["name"].(string); ok {
			filter, err := game.ParseSaveFilter(name)
			if err != nil {
				return NewUserErrorf("Unknown filter %q. Try player, mobiles or all.", name)
			}
			c.Actor.Filter = filter
		}
		return c.Actor.Write(fmt.Sprintf("Saves start from: %s", c.Actor.Filter))
	}, nil
}
