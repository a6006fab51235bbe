package savestate

import (
	"reflect"

	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/snapshot"
)

// DefaultRules is the field selection used for world savestates. Transforms
// and bodies save only their kinematic state; spawner prefabs and mobile
// secrets are authored data and always come from the zone.
func DefaultRules() []snapshot.SelectorOpt {
	return []snapshot.SelectorOpt{
		snapshot.WithReferenceType(game.ComponentType),
		snapshot.WithAllowlist(reflect.TypeFor[game.Transform](), "Position", "Rotation", "Scale"),
		snapshot.WithAllowlist(reflect.TypeFor[game.Body](), "Position", "Velocity"),
		snapshot.WithDenylist(reflect.TypeFor[game.Mobile](), "Secret"),
		snapshot.WithIgnoredExactTypes(reflect.TypeFor[game.Prefab]()),
		snapshot.WithIgnoredContainers(reflect.TypeFor[game.Base]()),
	}
}
