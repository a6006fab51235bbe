// Package snapshot captures the state of live entities as path-addressed
// field maps and writes that state back onto an equivalent, already
// constructed graph.
//
// Which fields of a type take part is decided once per type by a Selector.
// Fields whose type is an entity are never inlined: they are written as the
// path of the referenced entity and resolved again against the live graph
// when populating. A Capturer walks the reference graph outwards from a set
// of roots, and a Populator applies snapshots back.
package snapshot

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Addresser returns the structural path of a live entity. An empty string
// means the entity is not addressable.
type Addresser interface {
	PathOf(entity any) string
}

// Resolver finds the live entity at a path.
type Resolver interface {
	Resolve(path string) (any, bool)
}

// Snapshot is the captured state of one entity.
type Snapshot struct {
	Path string   `json:"path"`
	Data FieldMap `json:"data"`
}

// Record is one savestate: everything captured for a single context.
type Record struct {
	ID        string     `json:"id,omitempty"`
	ContextID string     `json:"contextId"`
	Snapshots []Snapshot `json:"snapshots"`
	RNGSeed   []byte     `json:"rngSeed,omitempty"`
}

// Validate satisfies storage.ValidatingSpec.
func (r *Record) Validate() error {
	el := errors.NewErrorList()

	if r.ContextID == "" {
		el.Add(fmt.Errorf("contextId is required"))
	}

	for i, s := range r.Snapshots {
		if s.Path == "" {
			el.Add(fmt.Errorf("snapshot %d: path is required", i))
		}
	}

	return el.Err()
}
