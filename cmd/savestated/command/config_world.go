package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/storage"
)

type WorldConfig struct {
	PersistentZone string   `json:"persistent_zone"`
	StartZone      string   `json:"start_zone"`
	TimeStep       string   `json:"time_step"`
	Seed           []uint64 `json:"seed,omitempty"`
}

func (c *WorldConfig) validate() error {
	el := errors.NewErrorList()

	if c.StartZone == "" {
		el.Add(fmt.Errorf("start_zone is required"))
	}
	if c.StartZone != "" && c.StartZone == c.PersistentZone {
		el.Add(fmt.Errorf("start_zone must differ from persistent_zone"))
	}
	if c.TimeStep != "" {
		d, err := time.ParseDuration(c.TimeStep)
		if err != nil {
			el.Add(fmt.Errorf("parsing time_step: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("time_step must be positive"))
		}
	}
	if len(c.Seed) != 0 && len(c.Seed) != 2 {
		el.Add(fmt.Errorf("seed must hold exactly two numbers"))
	}

	return el.Err()
}

func (c *WorldConfig) timeStep() time.Duration {
	d, err := time.ParseDuration(c.TimeStep)
	if err != nil || d <= 0 {
		return game.DefaultTimeStep
	}
	return d
}

// BuildWorld checks the configured zones exist and creates an empty world.
// It does not enter the start zone.
func (c *WorldConfig) BuildWorld(zones storage.Storer[*game.Zone], pub game.Publisher) (*game.World, error) {
	el := errors.NewErrorList()
	if zones.Get(c.StartZone) == nil {
		el.Add(fmt.Errorf("start_zone %q not found", c.StartZone))
	}
	if c.PersistentZone != "" && zones.Get(c.PersistentZone) == nil {
		el.Add(fmt.Errorf("persistent_zone %q not found", c.PersistentZone))
	}
	if err := el.Err(); err != nil {
		return nil, err
	}

	opts := []game.WorldOpt{
		game.WithTimeStep(c.timeStep()),
		game.WithPublisher(pub),
	}
	if c.PersistentZone != "" {
		opts = append(opts, game.WithPersistentZone(c.PersistentZone))
	}
	if len(c.Seed) == 2 {
		opts = append(opts, game.WithSeed(c.Seed[0], c.Seed[1]))
	}

	return game.NewWorld(zones, opts...), nil
}
