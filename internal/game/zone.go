package game

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/entitypath"
	"github.com/pixil98/go-savestate/internal/snapshot"
)

// Zone is an authored context: the node trees built when the context is
// entered. Zones double as prefabs for spawners.
type Zone struct {
	Title string     `json:"title"`
	Nodes []NodeSpec `json:"nodes"`
}

// NodeSpec describes one node. Component data uses the same field encoding
// as savestates, so references between components are entity paths.
type NodeSpec struct {
	Name       string          `json:"name"`
	Components []ComponentSpec `json:"components,omitempty"`
	Children   []NodeSpec      `json:"children,omitempty"`
}

type ComponentSpec struct {
	Type string            `json:"type"`
	Data snapshot.FieldMap `json:"data,omitempty"`
}

// Validate satisfies storage.ValidatingSpec.
func (z *Zone) Validate() error {
	el := errors.NewErrorList()

	validateNodes(func(err error) { el.Add(err) }, "", z.Nodes)

	return el.Err()
}

func validateNodes(add func(error), prefix string, nodes []NodeSpec) {
	seen := map[string]bool{}
	for i, n := range nodes {
		where := prefix + n.Name
		switch {
		case n.Name == "":
			add(fmt.Errorf("node %d under %q: name is required", i, prefix))
			continue
		case strings.ContainsAny(n.Name, entitypath.NodeSeparator+entitypath.TypeSeparator):
			add(fmt.Errorf("node %q: name must not contain %q or %q", where, entitypath.NodeSeparator, entitypath.TypeSeparator))
		case seen[n.Name]:
			add(fmt.Errorf("node %q: duplicate sibling name", where))
		}
		seen[n.Name] = true

		types := map[string]bool{}
		for j, c := range n.Components {
			switch {
			case c.Type == "":
				add(fmt.Errorf("node %q component %d: type is required", where, j))
			case types[c.Type]:
				add(fmt.Errorf("node %q: duplicate component type %q", where, c.Type))
			}
			types[c.Type] = true
		}

		validateNodes(add, where+entitypath.NodeSeparator, n.Children)
	}
}
