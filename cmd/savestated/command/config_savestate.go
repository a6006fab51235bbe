package command

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/savestate"
	"github.com/pixil98/go-savestate/internal/snapshot"
	"github.com/pixil98/go-savestate/internal/storage"
)

// SavestateConfig configures the savestate module. Deny lists extra fields,
// by component type, that savestates never capture.
type SavestateConfig struct {
	Layers         []string            `json:"layers"`
	RestoreTimeout string              `json:"restore_timeout"`
	Deny           map[string][]string `json:"deny,omitempty"`
}

func (c *SavestateConfig) validate() error {
	el := errors.NewErrorList()

	for _, l := range c.Layers {
		if err := storage.ValidateLayer(l); err != nil {
			el.Add(fmt.Errorf("layer %q: %w", l, err))
		}
	}
	if c.RestoreTimeout != "" {
		d, err := time.ParseDuration(c.RestoreTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing restore_timeout: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("restore_timeout must be positive"))
		}
	}
	for typ, fields := range c.Deny {
		if len(fields) == 0 {
			el.Add(fmt.Errorf("deny %s: no fields listed", typ))
		}
	}

	return el.Err()
}

func (c *SavestateConfig) BuildModule(world *game.World, store savestate.Store, notifiers ...savestate.Notifier) (*savestate.Module, error) {
	var opts []savestate.ModuleOpt
	if len(c.Layers) > 0 {
		opts = append(opts, savestate.WithLayers(c.Layers...))
	}
	if c.RestoreTimeout != "" {
		d, err := time.ParseDuration(c.RestoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing restore_timeout: %w", err)
		}
		opts = append(opts, savestate.WithRestoreTimeout(d))
	}
	for _, n := range notifiers {
		opts = append(opts, savestate.WithNotifier(n))
	}

	rules, err := c.denyRules(world.Registry())
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		opts = append(opts, savestate.WithRules(rules...))
	}

	return savestate.NewModule(world, store, opts...), nil
}

// denyRules resolves component type names through the registry so config
// can only name types a zone could use.
func (c *SavestateConfig) denyRules(reg *game.Registry) ([]snapshot.SelectorOpt, error) {
	el := errors.NewErrorList()
	var rules []snapshot.SelectorOpt
	for _, typ := range slices.Sorted(maps.Keys(c.Deny)) {
		comp, err := reg.New(typ)
		if err != nil {
			el.Add(fmt.Errorf("deny: %w", err))
			continue
		}
		rules = append(rules, snapshot.WithDenylist(reflect.TypeOf(comp).Elem(), c.Deny[typ]...))
	}
	if err := el.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}
