package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
)

const maxNesting = 32

var tokenType = reflect.TypeFor[*string]()

// encoder turns the selected fields of live values into field maps. Every
// entity written as a reference is reported to found.
type encoder struct {
	sel   *Selector
	paths Addresser
	found func(any)
}

func (e *encoder) encodeEntity(entity any, path string) (FieldMap, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidTarget
	}
	return e.encodeStruct(v.Elem(), path, 0), nil
}

func (e *encoder) encodeStruct(v reflect.Value, where string, depth int) FieldMap {
	fm := FieldMap{}
	for _, f := range e.sel.Fields(v.Type()) {
		raw, err := e.encodeField(f, v, where, depth)
		if err != nil {
			slog.Error("capturing field", "path", where, "field", f.Name, "error", err)
			continue
		}
		fm[f.Name] = raw
	}
	return fm
}

func (e *encoder) encodeField(f *Field, v reflect.Value, where string, depth int) (raw json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	fv, err := f.get(v)
	if err != nil {
		return nil, err
	}

	switch f.Kind {
	case KindValue:
		return json.Marshal(fv.Interface())

	case KindNested:
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				return json.RawMessage("null"), nil
			}
			fv = fv.Elem()
		}
		if depth >= maxNesting {
			return nil, ErrNestingDepth
		}
		return json.Marshal(e.encodeStruct(fv, where+"."+f.Name, depth+1))

	case KindRef:
		return json.Marshal(e.token(fv))

	case KindRefList:
		if fv.Kind() == reflect.Slice && fv.IsNil() {
			return json.RawMessage("null"), nil
		}
		toks := make([]*string, fv.Len())
		for i := range toks {
			toks[i] = e.token(fv.Index(i))
		}
		return json.Marshal(toks)

	case KindRefSet:
		if fv.IsNil() {
			return json.RawMessage("null"), nil
		}
		toks := make([]*string, 0, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			toks = append(toks, e.token(iter.Key()))
		}
		slices.SortFunc(toks, compareTokens)
		return json.Marshal(toks)

	case KindRefMap:
		if fv.IsNil() {
			return json.RawMessage("null"), nil
		}
		out := reflect.MakeMapWithSize(reflect.MapOf(f.Type.Key(), tokenType), fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), reflect.ValueOf(e.token(iter.Value())))
		}
		return json.Marshal(out.Interface())
	}

	return nil, fmt.Errorf("unknown field kind %v", f.Kind)
}

// token encodes one reference as its path, or nil.
func (e *encoder) token(v reflect.Value) *string {
	if isNil(v) {
		return nil
	}

	entity := v.Interface()
	path := e.paths.PathOf(entity)
	if path == "" {
		slog.Error("referenced entity has no path", "type", fmt.Sprintf("%T", entity))
		return nil
	}

	if e.found != nil {
		e.found(entity)
	}
	return &path
}

// decoder writes field maps onto existing values, resolving references
// against the live graph.
type decoder struct {
	sel      *Selector
	resolver Resolver
}

func (d *decoder) decodeStruct(v reflect.Value, fm FieldMap, where string, depth int) {
	for _, f := range d.sel.Fields(v.Type()) {
		raw, ok := fm[f.Name]
		if !ok {
			continue
		}
		if err := d.decodeField(f, v, raw, where, depth); err != nil {
			slog.Error("restoring field", "path", where, "field", f.Name, "error", err)
		}
	}
}

func (d *decoder) decodeField(f *Field, v reflect.Value, raw json.RawMessage, where string, depth int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch f.Kind {
	case KindValue:
		nv := reflect.New(f.Type)
		if err := json.Unmarshal(raw, nv.Interface()); err != nil {
			return fmt.Errorf("unmarshalling value: %w", err)
		}
		return f.set(v, nv.Elem())

	case KindNested:
		return d.decodeNested(f, v, raw, where, depth)

	case KindRef:
		var tok *string
		if err := json.Unmarshal(raw, &tok); err != nil {
			return fmt.Errorf("unmarshalling reference: %w", err)
		}
		return f.set(v, d.resolve(tok, f.Type, where))

	case KindRefList:
		var toks []*string
		if err := json.Unmarshal(raw, &toks); err != nil {
			return fmt.Errorf("unmarshalling reference list: %w", err)
		}
		return f.set(v, d.resolveList(toks, f.Type, where))

	case KindRefSet:
		var toks []*string
		if err := json.Unmarshal(raw, &toks); err != nil {
			return fmt.Errorf("unmarshalling reference set: %w", err)
		}
		if toks == nil {
			return f.set(v, reflect.Zero(f.Type))
		}
		out := reflect.MakeMapWithSize(f.Type, len(toks))
		for _, tok := range toks {
			rv := d.resolve(tok, f.Type.Key(), where)
			if isNil(rv) {
				continue
			}
			out.SetMapIndex(rv, reflect.Zero(f.Type.Elem()))
		}
		return f.set(v, out)

	case KindRefMap:
		toks := reflect.New(reflect.MapOf(f.Type.Key(), tokenType))
		if err := json.Unmarshal(raw, toks.Interface()); err != nil {
			return fmt.Errorf("unmarshalling reference map: %w", err)
		}
		if toks.Elem().IsNil() {
			return f.set(v, reflect.Zero(f.Type))
		}
		out := reflect.MakeMapWithSize(f.Type, toks.Elem().Len())
		iter := toks.Elem().MapRange()
		for iter.Next() {
			tok, _ := iter.Value().Interface().(*string)
			out.SetMapIndex(iter.Key(), d.resolve(tok, f.Type.Elem(), where))
		}
		return f.set(v, out)
	}

	return fmt.Errorf("unknown field kind %v", f.Kind)
}

func (d *decoder) decodeNested(f *Field, v reflect.Value, raw json.RawMessage, where string, depth int) error {
	var fm FieldMap
	if err := json.Unmarshal(raw, &fm); err != nil {
		return fmt.Errorf("unmarshalling nested value: %w", err)
	}
	if depth >= maxNesting {
		return ErrNestingDepth
	}

	cur, err := f.get(v)
	if err != nil {
		return err
	}

	if f.Type.Kind() == reflect.Pointer {
		if fm == nil {
			return f.set(v, reflect.Zero(f.Type))
		}
		target := cur
		if target.IsNil() {
			target = reflect.New(f.Type.Elem())
		}
		d.decodeStruct(target.Elem(), fm, where+"."+f.Name, depth+1)
		return f.set(v, target)
	}

	if fm == nil {
		return nil
	}
	target := reflect.New(f.Type).Elem()
	target.Set(cur)
	d.decodeStruct(target, fm, where+"."+f.Name, depth+1)
	return f.set(v, target)
}

// resolveList keeps the length of the encoded list; unresolvable entries stay
// nil at their position.
func (d *decoder) resolveList(toks []*string, t reflect.Type, where string) reflect.Value {
	if t.Kind() == reflect.Array {
		out := reflect.New(t).Elem()
		if len(toks) != t.Len() {
			slog.Warn("reference array length changed", "path", where, "stored", len(toks), "capacity", t.Len())
		}
		for i := 0; i < len(toks) && i < t.Len(); i++ {
			out.Index(i).Set(d.resolve(toks[i], t.Elem(), where))
		}
		return out
	}

	if toks == nil {
		return reflect.Zero(t)
	}
	out := reflect.MakeSlice(t, len(toks), len(toks))
	for i, tok := range toks {
		out.Index(i).Set(d.resolve(tok, t.Elem(), where))
	}
	return out
}

// resolve decodes one reference token into a value of type t. Failures are
// logged and yield the zero value.
func (d *decoder) resolve(tok *string, t reflect.Type, where string) reflect.Value {
	zero := reflect.Zero(t)
	if tok == nil {
		return zero
	}

	entity, ok := d.resolver.Resolve(*tok)
	if !ok || entity == nil {
		slog.Error("unresolvable reference", "path", where, "ref", *tok)
		return zero
	}

	rv := reflect.ValueOf(entity)
	if !rv.Type().AssignableTo(t) {
		slog.Error("reference has wrong type", "path", where, "ref", *tok, "want", t.String(), "got", rv.Type().String())
		return zero
	}
	return rv
}

func (f *Field) get(v reflect.Value) (reflect.Value, error) {
	if f.prop != nil {
		recv, err := receiver(v, f.prop.level)
		if err != nil {
			return reflect.Value{}, err
		}
		return recv.MethodByName(f.prop.getter).Call(nil)[0], nil
	}
	return v.FieldByIndexErr(f.index)
}

func (f *Field) set(v reflect.Value, x reflect.Value) error {
	if f.prop != nil {
		recv, err := receiver(v, f.prop.level)
		if err != nil {
			return err
		}
		recv.MethodByName(f.prop.setter).Call([]reflect.Value{x})
		return nil
	}

	fv, err := v.FieldByIndexErr(f.index)
	if err != nil {
		return err
	}
	if !fv.CanSet() {
		return ErrNotSettable
	}
	fv.Set(x)
	return nil
}

func receiver(v reflect.Value, level []int) (reflect.Value, error) {
	lv := v
	if len(level) > 0 {
		var err error
		lv, err = v.FieldByIndexErr(level)
		if err != nil {
			return reflect.Value{}, err
		}
	}
	if lv.Kind() == reflect.Pointer {
		if lv.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil embedded %s", lv.Type())
		}
		return lv, nil
	}
	if !lv.CanAddr() {
		return reflect.Value{}, ErrNotSettable
	}
	return lv.Addr(), nil
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return isNil(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func compareTokens(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
