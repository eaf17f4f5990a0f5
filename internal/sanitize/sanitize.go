// Package sanitize makes bounded, cycle-safe copies of arbitrary value graphs
// so they can cross a process or frame boundary as plain JSON.
package sanitize

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// Markers substituted for values that cannot be copied.
const (
	Circular = "[Circular]"
	MaxDepth = "[Max Depth]"
)

// Limits bounds a copy.
type Limits struct {
	Depth      int // deepest level copied; deeper values become MaxDepth
	ArrayItems int
	ObjectKeys int
}

// PropsLimits are the limits used for component props.
var PropsLimits = Limits{Depth: 3, ArrayItems: 5, ObjectKeys: 10}

// Copy returns a plain copy of v made of nil, bool, float64, string,
// []any and map[string]any. Values reached a second time are replaced with
// Circular, functions are dropped, and keys starting with "_" or "$$" are
// skipped. Object keys are truncated before filtering, so a wide object may
// yield fewer than ObjectKeys entries.
func Copy(v any, lim Limits) any {
	c := copier{lim: lim, seen: make(map[any]struct{})}
	return c.copy(v, 0)
}

// Props copies a props object with PropsLimits. A panic from a foreign
// object implementation degrades to an error entry.
func Props(v any) (out map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			out = map[string]any{"error": "Failed to sanitize props"}
		}
	}()
	m, _ := Copy(v, PropsLimits).(map[string]any)
	return m
}

type copier struct {
	lim  Limits
	seen map[any]struct{}
}

func (c *copier) copy(v any, depth int) any {
	if depth > c.lim.Depth {
		return MaxDepth
	}
	if v == nil {
		return nil
	}

	switch t := v.(type) {
	case string, bool, float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case dom.Func:
		return nil
	}

	if id, ok := identity(v); ok {
		if _, dup := c.seen[id]; dup {
			return Circular
		}
		c.seen[id] = struct{}{}
	}

	switch t := v.(type) {
	case dom.Array:
		n := t.Len()
		if n > c.lim.ArrayItems {
			n = c.lim.ArrayItems
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, c.copy(t.Index(i), depth+1))
		}
		return out
	case dom.Object:
		return c.object(t.Keys(), t.Get, depth)
	case []any:
		n := len(t)
		if n > c.lim.ArrayItems {
			n = c.lim.ArrayItems
		}
		out := make([]any, 0, n)
		for _, item := range t[:n] {
			out = append(out, c.copy(item, depth+1))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return c.object(keys, func(k string) (any, bool) {
			val, ok := t[k]
			return val, ok
		}, depth)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return c.copy(items, depth)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return c.copy(m, depth)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint, reflect.Uint8,
		reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, _ := toFloat(rv)
		return f
	}
	return fmt.Sprint(v)
}

func (c *copier) object(keys []string, get func(string) (any, bool), depth int) map[string]any {
	if len(keys) > c.lim.ObjectKeys {
		keys = keys[:c.lim.ObjectKeys]
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, "_") || strings.HasPrefix(k, "$$") {
			continue
		}
		val, ok := get(k)
		if !ok || isFunc(val) {
			continue
		}
		out[k] = c.copy(val, depth+1)
	}
	return out
}

func isFunc(v any) bool {
	if _, ok := v.(dom.Func); ok {
		return true
	}
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// identity returns a key for reference values. Plain values are copied
// wherever they appear and never count as repeats.
func identity(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
		return refKey{rv.Type(), rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}
		return refKey{rv.Type(), rv.Pointer()}, true
	}
	return nil, false
}

type refKey struct {
	t reflect.Type
	p uintptr
}

func toFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
