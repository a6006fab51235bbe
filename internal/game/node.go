package game

import (
	"strings"

	"github.com/pixil98/go-savestate/internal/entitypath"
)

// Node is one element of the world tree. Nodes carry components and
// children; a node's identity is the chain of names from its root.
type Node struct {
	name       string
	parent     *Node
	children   []*Node
	components []Component

	// root marks the hidden container at the top of a tree.
	root bool
}

func newRoot() *Node {
	return &Node{root: true}
}

func (n *Node) Name() string {
	return n.name
}

// Parent returns the enclosing node, or nil for a top-level node.
func (n *Node) Parent() *Node {
	if n.parent == nil || n.parent.root {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) Components() []Component {
	return n.components
}

// Child returns the first child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// AddChild creates and attaches a new child node.
func (n *Node) AddChild(name string) *Node {
	c := &Node{name: name, parent: n}
	n.children = append(n.children, c)
	return c
}

// RemoveChild detaches c. Components under c stop resolving.
func (n *Node) RemoveChild(c *Node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// AddComponent attaches c to the node.
func (n *Node) AddComponent(c Component) {
	c.attach(n)
	n.components = append(n.components, c)
}

// Segments returns the node names from the top of the tree down to n.
func (n *Node) Segments() []string {
	var segs []string
	for cur := n; cur != nil && !cur.root; cur = cur.parent {
		segs = append(segs, cur.name)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs
}

// Path returns the node part of an entity path.
func (n *Node) Path() string {
	return strings.Join(n.Segments(), entitypath.NodeSeparator)
}

// attached reports whether n still hangs off a root.
func (n *Node) attached() bool {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur.root
}

// find walks segs down from n.
func (n *Node) find(segs []string) *Node {
	cur := n
	for _, s := range segs {
		cur = cur.Child(s)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// walk visits n and every descendant depth first.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// ComponentOf returns the first component on n of type T.
func ComponentOf[T Component](n *Node) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	for _, c := range n.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// Sibling returns the first component of type T sharing c's node.
func Sibling[T Component](c Component) (T, bool) {
	return ComponentOf[T](c.Node())
}
