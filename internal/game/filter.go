package game

import "fmt"

// SaveFilter selects which entities a savestate starts from.
type SaveFilter int

const (
	// FilterPlayer roots a save at the persistent nodes only.
	FilterPlayer SaveFilter = iota
	// FilterMobiles adds every mobile in the context, with its siblings.
	FilterMobiles
	// FilterAll roots a save at every component in the world.
	FilterAll
)

func (f SaveFilter) String() string {
	switch f {
	case FilterPlayer:
		return "player"
	case FilterMobiles:
		return "mobiles"
	case FilterAll:
		return "all"
	}
	return "unknown"
}

func ParseSaveFilter(s string) (SaveFilter, error) {
	switch s {
	case "", "player":
		return FilterPlayer, nil
	case "mobiles":
		return FilterMobiles, nil
	case "all":
		return FilterAll, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSaveFilter, s)
}

// Roots returns the components a save with filter f starts from, in tree
// order with persistent nodes first.
func (w *World) Roots(f SaveFilter) []any {
	var roots []any
	add := func(n *Node) {
		for _, c := range n.components {
			roots = append(roots, c)
		}
	}

	if w.persistent != nil {
		w.persistent.walk(add)
	}
	if w.context == nil || f == FilterPlayer {
		return roots
	}

	w.context.walk(func(n *Node) {
		if f == FilterAll {
			add(n)
			return
		}
		if _, ok := ComponentOf[*Mobile](n); ok {
			add(n)
		}
	})
	return roots
}
