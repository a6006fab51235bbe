package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixil98/go-savestate/internal/entitypath"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/storage"
)

const (
	defaultController = "player@Controller"
	defaultTransform  = "player@Transform"
)

// World is the part of the game world console commands touch.
type World interface {
	Do(fn func())
	Resolve(path string) (any, bool)
	ContextID() string
	RequestReload(id string) error
}

// entityConfig validates an optional "entity" path in config.
func entityConfig(config map[string]string) error {
	if e, ok := config["entity"]; ok {
		if _, err := entitypath.Parse(e); err != nil {
			return fmt.Errorf("entity: %w", err)
		}
	}
	return nil
}

func entityOf(c *CommandContext, def string) string {
	if e := c.Config["entity"]; e != "" {
		return e
	}
	return def
}

// MoveHandlerFactory creates handlers that steer a controller.
// Config:
//   - entity (optional): controller path, default player@Controller
type MoveHandlerFactory struct {
	world World
}

func NewMoveHandlerFactory(world World) *MoveHandlerFactory {
	return &MoveHandlerFactory{world: world}
}

func (f *MoveHandlerFactory) ValidateConfig(config map[string]string) error {
	return entityConfig(config)
}

func (f *MoveHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		dx, _, _ := c.Int("x")
		dy, _, _ := c.Int("y")
		input := game.Vec2{X: float64(dx), Y: float64(dy)}

		path := entityOf(c, defaultController)
		found := false
		f.world.Do(func() {
			e, ok := f.world.Resolve(path)
			if !ok {
				return
			}
			ctrl, ok := e.(*game.Controller)
			if !ok {
				return
			}
			ctrl.Input = input
			found = true
		})
		if !found {
			return NewUserError("There is nothing here to move.")
		}

		if input == (game.Vec2{}) {
			return c.Actor.Write("You stop.")
		}
		return c.Actor.Write(fmt.Sprintf("You start moving towards %s.", input))
	}, nil
}

// WhereHandlerFactory creates handlers that report a transform's position.
// Config:
//   - entity (optional): transform path, default player@Transform
type WhereHandlerFactory struct {
	world World
}

func NewWhereHandlerFactory(world World) *WhereHandlerFactory {
	return &WhereHandlerFactory{world: world}
}

func (f *WhereHandlerFactory) ValidateConfig(config map[string]string) error {
	return entityConfig(config)
}

func (f *WhereHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		contextID := f.world.ContextID()
		path := entityOf(c, defaultTransform)

		var pos game.Vec2
		found := false
		f.world.Do(func() {
			e, ok := f.world.Resolve(path)
			if !ok {
				return
			}
			if t, ok := e.(*game.Transform); ok {
				pos, found = t.Position, true
			}
		})
		if !found {
			return NewUserError("You are nowhere.")
		}

		if contextID == "" {
			return c.Actor.Write(fmt.Sprintf("You are at %s.", pos))
		}
		return c.Actor.Write(fmt.Sprintf("You are at %s in %s.", pos, contextID))
	}, nil
}

// Restorer reports whether a savestate is being loaded.
type Restorer interface {
	Restoring() bool
}

// TravelHandlerFactory creates handlers that move the world to another zone.
// The persistent zone is never a destination.
type TravelHandlerFactory struct {
	world      World
	restores   Restorer
	zones      storage.Storer[*game.Zone]
	persistent string
}

func NewTravelHandlerFactory(world World, restores Restorer, zones storage.Storer[*game.Zone], persistent string) *TravelHandlerFactory {
	return &TravelHandlerFactory{world: world, restores: restores, zones: zones, persistent: persistent}
}

func (f *TravelHandlerFactory) ValidateConfig(config map[string]string) error {
	return nil
}

func (f *TravelHandlerFactory) Create() (CommandFunc, error) {
	return func(ctx context.Context, c *CommandContext) error {
		zone := c.String("zone")
		if zone == "" {
			return NewUserError("Where to?")
		}
		if zone == f.persistent || f.zones.Get(zone) == nil {
			return NewUserErrorf("There is no place called %q.", zone)
		}
		if zone == f.world.ContextID() {
			return NewUserErrorf("You are already in %s.", zone)
		}
		if f.restores.Restoring() {
			return NewUserError("A savestate is loading, wait a moment.")
		}

		if err := f.world.RequestReload(zone); err != nil {
			if errors.Is(err, game.ErrReloadPending) {
				return NewUserError("The world is already changing, wait a moment.")
			}
			return fmt.Errorf("requesting reload of %s: %w", zone, err)
		}
		return c.Actor.Write(fmt.Sprintf("You head for %s.", zone))
	}, nil
}
