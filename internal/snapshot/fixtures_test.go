package snapshot

import (
	"reflect"
)

type entity interface {
	entityName() string
}

type node struct {
	name string
}

func (n *node) entityName() string { return n.name }

type vec struct {
	X float64
	Y float64
}

type body struct {
	node
	Position vec
	Velocity vec
	Mass     float64
}

type guard struct {
	node
	HP     int
	Secret string
	Target *guard
	Allies []*guard
	Watch  map[*guard]struct{}
	Posts  map[string]entity
	Notes  map[string]int
	OnHit  func()
	Broken map[string]any
	Lookup map[vec]int
}

type caravan struct {
	Stops  []vec
	Route  [2]vec
	Depots map[string]vec
	Load   int
}

type stats struct {
	Level int
	Pet   *guard
}

type hero struct {
	node
	Body  *body
	Stats stats
	Combo [3]int
	Pals  [2]*guard
}

type pool[T any] struct {
	node
	Items []T
	Size  int
}

type levelled struct {
	node
	Name   string
	health int
}

func (l *levelled) Health() int     { return l.health }
func (l *levelled) SetHealth(h int) { l.health = h }

type elite struct {
	levelled
	Name  string
	Title string
}

// graph is an in-memory addresser and resolver.
type graph struct {
	paths  map[any]string
	byPath map[string]any
}

func newGraph() *graph {
	return &graph{paths: map[any]string{}, byPath: map[string]any{}}
}

func (g *graph) add(path string, e any) {
	g.paths[e] = path
	g.byPath[path] = e
}

func (g *graph) PathOf(e any) string { return g.paths[e] }

func (g *graph) Resolve(p string) (any, bool) {
	e, ok := g.byPath[p]
	return e, ok
}

func testSelector(opts ...SelectorOpt) *Selector {
	return NewSelector(append([]SelectorOpt{WithReferenceType(reflect.TypeFor[entity]())}, opts...)...)
}

func fieldNames(fields []*Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func fieldKind(fields []*Field, name string) (Kind, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return 0, false
}
