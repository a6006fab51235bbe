package game

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pixil98/go-savestate/internal/storage"
)

type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// Transform places a node in the world.
type Transform struct {
	Base
	Position Vec2
	Rotation float64
	Scale    Vec2
}

// Body is a point mass moved by the world each tick.
type Body struct {
	Base
	Position Vec2
	Velocity Vec2
	Mass     float64
	Static   bool
}

func (b *Body) integrate(dt float64) {
	if b.Static {
		return
	}
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	if t, ok := Sibling[*Transform](b); ok {
		t.Position = b.Position
	}
}

// Mobile is a creature that may wander and pick a target.
type Mobile struct {
	Base
	Label  string
	HP     int
	Secret string
	Wander bool
	Speed  float64
	Target *Mobile
	Allies []*Mobile
}

// wanderChance is the per-tick probability that a wandering mobile turns.
const wanderChance = 0.25

func (m *Mobile) Update(w *World, _ float64) {
	if !m.Wander {
		return
	}
	body, ok := Sibling[*Body](m)
	if !ok {
		return
	}
	r := w.Rand()
	if r.Float64() >= wanderChance {
		return
	}
	heading := r.Float64() * 2 * math.Pi
	body.Velocity = Vec2{X: math.Cos(heading), Y: math.Sin(heading)}.Scale(m.Speed)
}

// Controller drives its node from external input.
type Controller struct {
	Base
	Input Vec2
	Speed float64
}

func (c *Controller) Update(_ *World, dt float64) {
	v := c.Input.Scale(c.Speed)
	if body, ok := Sibling[*Body](c); ok {
		body.Velocity = v
		return
	}
	if t, ok := Sibling[*Transform](c); ok {
		t.Position = t.Position.Add(v.Scale(dt))
	}
}

// Prefab names the zone a Spawner instantiates.
type Prefab struct {
	storage.Ref[*Zone]
}

// Spawner instantiates its prefab under its own node every Every ticks, up
// to Max copies.
type Spawner struct {
	Base
	Prefab  Prefab
	Every   int
	Max     int
	Timer   int
	Spawned int
}

func (s *Spawner) Init(w *World) error {
	if s.Prefab.Key() == "" {
		return nil
	}
	if err := s.Prefab.Resolve(w.zones); err != nil {
		return fmt.Errorf("spawner %s: %w", s.Node().Path(), err)
	}
	return nil
}

func (s *Spawner) Update(w *World, _ float64) {
	prefab := s.Prefab.Get()
	if prefab == nil || s.Spawned >= s.Max {
		return
	}

	s.Timer++
	if s.Timer < s.Every {
		return
	}
	s.Timer = 0
	s.Spawned++

	suffix := fmt.Sprintf("-%d", s.Spawned)
	if err := w.instantiate(s.Node(), prefab.Nodes, suffix); err != nil {
		slog.Error("spawning prefab", "spawner", s.Node().Path(), "prefab", s.Prefab.Key(), "error", err)
	}
}
