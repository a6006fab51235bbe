// Package entitypath implements the structural addresses used to name
// entities in the live world: the node names from a root joined by '/',
// followed by '@' and the type tag of the component on the leaf node.
//
//	overworld/camp/guard@Mobile
package entitypath

import (
	"fmt"
	"strings"
)

const (
	NodeSeparator = "/"
	TypeSeparator = "@"
)

// Path is a parsed entity address.
type Path struct {
	Nodes []string
	Type  string
}

// New builds a path from node names and a type tag.
func New(nodes []string, typ string) Path {
	return Path{Nodes: append([]string(nil), nodes...), Type: typ}
}

// Parse splits an entity address into its node names and type tag. The type
// tag is everything after the last '@'.
func Parse(s string) (Path, error) {
	i := strings.LastIndex(s, TypeSeparator)
	if i == -1 {
		return Path{}, fmt.Errorf("path %q has no type tag", s)
	}

	typ := s[i+1:]
	if typ == "" {
		return Path{}, fmt.Errorf("path %q has an empty type tag", s)
	}

	nodes, err := ParseObject(s[:i])
	if err != nil {
		return Path{}, err
	}

	return Path{Nodes: nodes, Type: typ}, nil
}

// ParseObject splits a node path (without type tag) into node names.
func ParseObject(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty object path")
	}
	if strings.HasPrefix(s, NodeSeparator) || strings.HasSuffix(s, NodeSeparator) {
		return nil, fmt.Errorf("invalid object path %q", s)
	}

	nodes := strings.Split(s, NodeSeparator)
	for _, n := range nodes {
		if n == "" {
			return nil, fmt.Errorf("object path %q has an empty segment", s)
		}
	}
	return nodes, nil
}

// Object returns the node part of the path.
func (p Path) Object() string {
	return strings.Join(p.Nodes, NodeSeparator)
}

func (p Path) String() string {
	return p.Object() + TypeSeparator + p.Type
}

// Within reports whether p addresses an entity on the scope's node or on one
// of its descendants. The type tags are not compared.
func (p Path) Within(scope Path) bool {
	if len(scope.Nodes) == 0 || len(p.Nodes) < len(scope.Nodes) {
		return false
	}
	for i, n := range scope.Nodes {
		if p.Nodes[i] != n {
			return false
		}
	}
	return true
}

// Within is the string form of Path.Within. Unparseable input is never within
// anything.
func Within(path, scope string) bool {
	p, err := Parse(path)
	if err != nil {
		return false
	}
	s, err := Parse(scope)
	if err != nil {
		return false
	}
	return p.Within(s)
}
