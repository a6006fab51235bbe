package snapshot

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Populator writes snapshots onto existing entities. It never constructs
// entities; references are resolved against the live graph only.
type Populator struct {
	sel      *Selector
	resolver Resolver
}

func NewPopulator(sel *Selector, resolver Resolver) *Populator {
	return &Populator{sel: sel, resolver: resolver}
}

// Populate decodes data onto target, which must be a pointer to a struct.
// Fields that fail to decode are logged and left unchanged.
func (p *Populator) Populate(target any, data FieldMap) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("populating %T: %w", target, ErrInvalidTarget)
	}

	d := &decoder{sel: p.sel, resolver: p.resolver}
	d.decodeStruct(v.Elem(), data, fmt.Sprintf("%T", target), 0)
	return nil
}

// Apply resolves the snapshot's path and populates the entity found there.
func (p *Populator) Apply(s Snapshot) error {
	target, ok := p.resolver.Resolve(s.Path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, s.Path)
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("populating %s: %w", s.Path, ErrInvalidTarget)
	}

	d := &decoder{sel: p.sel, resolver: p.resolver}
	d.decodeStruct(v.Elem(), s.Data, s.Path, 0)
	return nil
}

// ApplyAll applies snapshots in order. Snapshots whose target is missing are
// logged and skipped. It returns how many were applied and skipped.
func (p *Populator) ApplyAll(snaps []Snapshot) (applied, skipped int) {
	for _, s := range snaps {
		if err := p.Apply(s); err != nil {
			slog.Error("savestate stored state on an entity that does not exist at load time", "path", s.Path, "error", err)
			skipped++
			continue
		}
		applied++
	}
	return applied, skipped
}
