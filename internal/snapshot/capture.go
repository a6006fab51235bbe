package snapshot

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/pixil98/go-savestate/internal/entitypath"
)

type captureConfig struct {
	scope    any
	maxDepth int
}

// CaptureOpt configures a single Capture call.
type CaptureOpt func(*captureConfig)

// WithScope limits reference expansion to entities on the scope entity's
// node or its descendants. Roots are always captured.
func WithScope(entity any) CaptureOpt {
	return func(c *captureConfig) {
		c.scope = entity
	}
}

// WithMaxDepth stops following references more than n hops away from the
// roots. Zero captures the roots only.
func WithMaxDepth(n int) CaptureOpt {
	return func(c *captureConfig) {
		c.maxDepth = n
	}
}

// Capturer walks the reference graph of live entities and snapshots them.
type Capturer struct {
	sel   *Selector
	paths Addresser
}

func NewCapturer(sel *Selector, paths Addresser) *Capturer {
	return &Capturer{sel: sel, paths: paths}
}

type pending struct {
	entity any
	depth  int
}

// Capture snapshots the roots and every entity reachable from them through
// reference fields, breadth first. Roots come first in the result, in the
// order given; each entity is captured at most once.
func (c *Capturer) Capture(roots []any, opts ...CaptureOpt) []Snapshot {
	cfg := &captureConfig{maxDepth: -1}
	for _, opt := range opts {
		opt(cfg)
	}

	within := c.scopeFilter(cfg.scope)

	seen := map[any]bool{}
	var queue []pending
	for _, r := range roots {
		if !identifiable(r) || seen[r] {
			continue
		}
		seen[r] = true
		queue = append(queue, pending{entity: r})
	}

	var snaps []Snapshot
	for i := 0; i < len(queue); i++ {
		item := queue[i]

		path := c.paths.PathOf(item.entity)
		if path == "" {
			slog.Error("skipping entity without path", "type", fmt.Sprintf("%T", item.entity))
			continue
		}

		var found []any
		enc := &encoder{sel: c.sel, paths: c.paths, found: func(e any) { found = append(found, e) }}

		data, err := enc.encodeEntity(item.entity, path)
		if err != nil {
			slog.Error("capturing entity", "path", path, "error", err)
			continue
		}
		snaps = append(snaps, Snapshot{Path: path, Data: data})

		if cfg.maxDepth >= 0 && item.depth >= cfg.maxDepth {
			continue
		}

		for _, ref := range found {
			if !identifiable(ref) || seen[ref] || !within(ref) {
				continue
			}
			seen[ref] = true
			queue = append(queue, pending{entity: ref, depth: item.depth + 1})
		}
	}

	return snaps
}

func (c *Capturer) scopeFilter(scope any) func(any) bool {
	if scope == nil {
		return func(any) bool { return true }
	}

	sp, err := entitypath.Parse(c.paths.PathOf(scope))
	if err != nil {
		slog.Error("capture scope has no valid path, references will not be followed", "error", err)
		return func(any) bool { return false }
	}

	return func(e any) bool {
		p, err := entitypath.Parse(c.paths.PathOf(e))
		return err == nil && p.Within(sp)
	}
}

func identifiable(e any) bool {
	if e == nil {
		return false
	}
	t := reflect.TypeOf(e)
	return t.Comparable() && !isNil(reflect.ValueOf(e))
}
