package memdom

import (
	"strconv"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// Object is an ordered script object.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject builds an object from alternating key/value pairs.
func NewObject(kv ...any) *Object {
	o := &Object{vals: make(map[string]any)}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			o.Set(k, kv[i+1])
		}
	}
	return o
}

// Set adds or replaces a property, keeping first-insertion order.
func (o *Object) Set(key string, v any) *Object {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = untyped(v)
	return o
}

// untyped turns nil object pointers into a plain nil so callers can test
// property values against nil.
func untyped(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
	case *Array:
		if t == nil {
			return nil
		}
	case *Func:
		if t == nil {
			return nil
		}
	}
	return v
}

func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Array is a script array.
type Array struct {
	items []any
}

// NewArray builds an array.
func NewArray(items ...any) *Array {
	return &Array{items: items}
}

func (a *Array) Keys() []string {
	out := make([]string, len(a.items))
	for i := range a.items {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func (a *Array) Get(key string) (any, bool) {
	if key == "length" {
		return float64(len(a.items)), true
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(a.items) {
		return nil, false
	}
	return a.items[i], true
}

func (a *Array) Len() int { return len(a.items) }

func (a *Array) Index(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Func is a script function with optional static properties.
type Func struct {
	Object
	name   string
	source string
}

// NewFunc builds a function value. source is what Function.prototype.toString would return.
func NewFunc(name, source string) *Func {
	return &Func{Object: Object{vals: make(map[string]any)}, name: name, source: source}
}

// With sets a static property such as displayName.
func (f *Func) With(key string, v any) *Func {
	f.Set(key, v)
	return f
}

func (f *Func) Get(key string) (any, bool) {
	if v, ok := f.vals[key]; ok {
		return v, true
	}
	if key == "name" {
		return f.name, true
	}
	return nil, false
}

func (f *Func) Name() string {
	if v, ok := f.vals["name"].(string); ok {
		return v
	}
	return f.name
}

func (f *Func) Source() string { return f.source }

var (
	_ dom.Object = (*Object)(nil)
	_ dom.Array  = (*Array)(nil)
	_ dom.Func   = (*Func)(nil)
)
