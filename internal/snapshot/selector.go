package snapshot

import (
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Kind classifies how a field is encoded.
type Kind int

const (
	KindValue   Kind = iota // plain JSON value
	KindNested              // struct value encoded with the same selection rules
	KindRef                 // single entity reference
	KindRefList             // slice or array of entity references
	KindRefSet              // map[entity]struct{}
	KindRefMap              // primitive-keyed map of entity references
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindNested:
		return "nested"
	case KindRef:
		return "ref"
	case KindRefList:
		return "ref-list"
	case KindRefSet:
		return "ref-set"
	case KindRefMap:
		return "ref-map"
	default:
		return "unknown"
	}
}

// Field describes one selected field or promoted property of a type.
type Field struct {
	Name string
	Kind Kind
	Type reflect.Type

	index []int
	prop  *property
}

type property struct {
	level  []int
	getter string
	setter string
}

// SelectorOpt configures a Selector.
type SelectorOpt func(*Selector)

// WithReferenceType sets the interface implemented by entities. Fields of a
// type implementing it are encoded as references.
func WithReferenceType(t reflect.Type) SelectorOpt {
	return func(s *Selector) {
		s.refType = t
	}
}

// WithValueTypes excludes types from reference classification even though
// they implement the reference interface.
func WithValueTypes(types ...reflect.Type) SelectorOpt {
	return func(s *Selector) {
		s.valueTypes = append(s.valueTypes, types...)
	}
}

// WithAllowlist restricts the fields declared by t to exactly names.
// Generic types are matched by their stem, so the allow-list of Pool[int]
// also applies to Pool[string].
func WithAllowlist(t reflect.Type, names ...string) SelectorOpt {
	return func(s *Selector) {
		s.allow[Stem(t)] = names
	}
}

// WithDenylist removes names from the default selection of t.
func WithDenylist(t reflect.Type, names ...string) SelectorOpt {
	return func(s *Selector) {
		s.deny[Stem(t)] = append(s.deny[Stem(t)], names...)
	}
}

// WithPromoted adds getter/setter method pairs (Name/SetName on *t) to the
// default selection of t.
func WithPromoted(t reflect.Type, names ...string) SelectorOpt {
	return func(s *Selector) {
		s.promote[Stem(t)] = append(s.promote[Stem(t)], names...)
	}
}

// WithIgnoredTypes drops every field whose type, or element type, is one of
// types or implements one of the interface types.
func WithIgnoredTypes(types ...reflect.Type) SelectorOpt {
	return func(s *Selector) {
		s.ignore = append(s.ignore, types...)
	}
}

// WithIgnoredExactTypes drops fields whose type is exactly one of types.
func WithIgnoredExactTypes(types ...reflect.Type) SelectorOpt {
	return func(s *Selector) {
		s.ignoreExact = append(s.ignoreExact, types...)
	}
}

// WithIgnoredContainers drops every field declared directly by one of types.
// Fields of the types they embed are still considered.
func WithIgnoredContainers(types ...reflect.Type) SelectorOpt {
	return func(s *Selector) {
		for _, t := range types {
			s.ignoreContainers[deref(t)] = true
		}
	}
}

// Selector decides per type which fields take part in a snapshot. Results
// are computed once per type and cached.
type Selector struct {
	refType    reflect.Type
	valueTypes []reflect.Type

	allow   map[string][]string
	deny    map[string][]string
	promote map[string][]string

	ignore           []reflect.Type
	ignoreExact      []reflect.Type
	ignoreContainers map[reflect.Type]bool

	mu    sync.RWMutex
	cache map[reflect.Type][]*Field
}

func NewSelector(opts ...SelectorOpt) *Selector {
	s := &Selector{
		allow:            map[string][]string{},
		deny:             map[string][]string{},
		promote:          map[string][]string{},
		ignoreContainers: map[reflect.Type]bool{},
		cache:            map[reflect.Type][]*Field{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fields returns the selected fields of t, most-derived level first. Pointer
// types are dereferenced; non-struct types have no fields.
func (s *Selector) Fields(t reflect.Type) []*Field {
	t = deref(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	s.mu.RLock()
	fields, ok := s.cache[t]
	s.mu.RUnlock()
	if ok {
		return fields
	}

	fields = s.analyze(t)

	s.mu.Lock()
	s.cache[t] = fields
	s.mu.Unlock()

	return fields
}

// IsReference reports whether values of t are encoded as entity references.
func (s *Selector) IsReference(t reflect.Type) bool {
	if s.refType == nil || t == nil {
		return false
	}
	if !t.Implements(s.refType) {
		return false
	}
	return !slices.Contains(s.valueTypes, t) && !slices.Contains(s.valueTypes, deref(t))
}

type level struct {
	typ   reflect.Type
	index []int
}

func (s *Selector) analyze(t reflect.Type) []*Field {
	var fields []*Field
	taken := map[string]bool{}

	add := func(f *Field) {
		if taken[f.Name] {
			return
		}
		taken[f.Name] = true
		fields = append(fields, f)
	}

	queue := []level{{typ: t}}
	for len(queue) > 0 {
		lv := queue[0]
		queue = queue[1:]

		for i := 0; i < lv.typ.NumField(); i++ {
			sf := lv.typ.Field(i)
			if !sf.Anonymous {
				continue
			}
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				queue = append(queue, level{typ: et, index: appendIndex(lv.index, i)})
			}
		}

		if s.ignoreContainers[lv.typ] {
			continue
		}

		for _, f := range s.levelFields(lv) {
			add(f)
		}
	}

	return fields
}

func (s *Selector) levelFields(lv level) []*Field {
	stem := Stem(lv.typ)

	if allow, ok := s.allow[stem]; ok {
		var fields []*Field
		for _, name := range allow {
			f := s.declaredField(lv, name)
			if f == nil {
				f = s.property(lv, name)
			}
			if f == nil {
				slog.Error("field in allowlist does not exist", "type", lv.typ.String(), "field", name)
				continue
			}
			if s.classify(f) {
				fields = append(fields, f)
			}
		}
		return fields
	}

	deny := s.deny[stem]

	var fields []*Field
	for i := 0; i < lv.typ.NumField(); i++ {
		sf := lv.typ.Field(i)
		if sf.Anonymous || !sf.IsExported() || sf.Tag.Get("snapshot") == "-" {
			continue
		}
		if slices.Contains(deny, sf.Name) {
			continue
		}

		f := &Field{Name: sf.Name, Type: sf.Type, index: appendIndex(lv.index, i)}
		if s.classify(f) {
			fields = append(fields, f)
		}
	}

	for _, name := range s.promote[stem] {
		if slices.Contains(deny, name) {
			continue
		}
		f := s.property(lv, name)
		if f == nil {
			slog.Error("promoted property does not exist", "type", lv.typ.String(), "property", name)
			continue
		}
		if s.classify(f) {
			fields = append(fields, f)
		}
	}

	return fields
}

func (s *Selector) declaredField(lv level, name string) *Field {
	sf, ok := lv.typ.FieldByName(name)
	if !ok || sf.Anonymous || !sf.IsExported() || len(sf.Index) != 1 {
		return nil
	}
	return &Field{Name: sf.Name, Type: sf.Type, index: appendIndex(lv.index, sf.Index[0])}
}

// property looks for a Name()/SetName(v) method pair on the pointer type of
// the level.
func (s *Selector) property(lv level, name string) *Field {
	pt := reflect.PointerTo(lv.typ)

	get, ok := pt.MethodByName(name)
	if !ok || get.Type.NumIn() != 1 || get.Type.NumOut() != 1 {
		return nil
	}
	setter := "Set" + name
	set, ok := pt.MethodByName(setter)
	if !ok || set.Type.NumIn() != 2 || set.Type.In(1) != get.Type.Out(0) {
		return nil
	}

	return &Field{
		Name: name,
		Type: get.Type.Out(0),
		prop: &property{level: lv.index, getter: name, setter: setter},
	}
}

// classify sets f.Kind and reports whether the field takes part at all.
func (s *Selector) classify(f *Field) bool {
	t := f.Type

	if s.ignored(t) {
		return false
	}
	if s.IsReference(t) {
		f.Kind = KindRef
		return true
	}

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		return false

	case reflect.Slice, reflect.Array:
		e := t.Elem()
		if s.ignored(e) || unsupported(e) {
			return false
		}
		if s.IsReference(e) {
			f.Kind = KindRefList
			return true
		}
		if s.containsReference(e, map[reflect.Type]bool{}) {
			return false
		}
		f.Kind = KindValue
		return true

	case reflect.Map:
		k, e := t.Key(), t.Elem()
		if isEmptyStruct(e) {
			if s.ignored(k) {
				return false
			}
			if s.IsReference(k) {
				f.Kind = KindRefSet
				return true
			}
		}
		if !primitiveKey(k) {
			return false
		}
		if s.ignored(e) || unsupported(e) {
			return false
		}
		if s.IsReference(e) {
			f.Kind = KindRefMap
			return true
		}
		if s.containsReference(e, map[reflect.Type]bool{}) {
			return false
		}
		f.Kind = KindValue
		return true

	case reflect.Struct:
		if marshals(t) {
			f.Kind = KindValue
			return true
		}
		f.Kind = KindNested
		return true

	case reflect.Pointer:
		e := t.Elem()
		if e.Kind() == reflect.Struct && !marshals(t) && !marshals(e) {
			f.Kind = KindNested
			return true
		}
		if s.ignored(e) || s.containsReference(e, map[reflect.Type]bool{}) {
			return false
		}
		f.Kind = KindValue
		return true
	}

	f.Kind = KindValue
	return true
}

func (s *Selector) ignored(t reflect.Type) bool {
	if slices.Contains(s.ignoreExact, t) {
		return true
	}
	for _, it := range s.ignore {
		if it.Kind() == reflect.Interface {
			if t.Implements(it) {
				return true
			}
			continue
		}
		if t == it || (t.Kind() == reflect.Pointer && t.Elem() == it) {
			return true
		}
	}
	return false
}

// containsReference reports whether a value of t can reach an entity without
// passing through a selected reference field.
func (s *Selector) containsReference(t reflect.Type, visited map[reflect.Type]bool) bool {
	if visited[t] {
		return false
	}
	visited[t] = true

	if s.IsReference(t) {
		return true
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return s.containsReference(t.Elem(), visited)
	case reflect.Map:
		return s.containsReference(t.Key(), visited) || s.containsReference(t.Elem(), visited)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.IsExported() && s.containsReference(sf.Type, visited) {
				return true
			}
		}
	}
	return false
}

// Stem names a type independent of its generic arguments.
func Stem(t reflect.Type) string {
	t = deref(t)
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return t.PkgPath() + "." + name
}

// TypeTag is the short type name used as the leaf of an entity path.
func TypeTag(t reflect.Type) string {
	t = deref(t)
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func appendIndex(prefix []int, i int) []int {
	idx := make([]int, len(prefix), len(prefix)+1)
	copy(idx, prefix)
	return append(idx, i)
}

func primitiveKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func unsupported(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func isEmptyStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

var (
	jsonMarshalerType = reflect.TypeFor[interface{ MarshalJSON() ([]byte, error) }]()
	textMarshalerType = reflect.TypeFor[interface{ MarshalText() ([]byte, error) }]()
)

func marshals(t reflect.Type) bool {
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	if t.Kind() != reflect.Pointer {
		pt := reflect.PointerTo(t)
		return pt.Implements(jsonMarshalerType) || pt.Implements(textMarshalerType)
	}
	return false
}
