// Package fiber maps rendered elements back to the components that produced
// them by walking the framework's internal render tree.
package fiber

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/internal/sanitize"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// Placeholder is the name reported when no strategy resolves one.
const Placeholder = "Component"

// KeyScheme recognises the property under which a runtime version stores
// its per-element render-tree handle.
type KeyScheme interface {
	Name() string
	Match(key string) bool
}

type prefixScheme struct {
	name   string
	prefix string
}

func (s prefixScheme) Name() string          { return s.name }
func (s prefixScheme) Match(key string) bool { return strings.HasPrefix(key, s.prefix) }

// DefaultSchemes covers current and legacy runtimes, tried in order.
var DefaultSchemes = []KeyScheme{
	prefixScheme{name: "fiber", prefix: "__reactFiber$"},
	prefixScheme{name: "internal-instance", prefix: "__reactInternalInstance$"},
}

var functionNameRe = regexp.MustCompile(`function\s+([^\s(]+)`)

// Resolver identifies components behind elements.
type Resolver struct {
	schemes []KeyScheme
}

// NewResolver creates a Resolver. With no schemes, DefaultSchemes are used.
func NewResolver(schemes ...KeyScheme) *Resolver {
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	return &Resolver{schemes: schemes}
}

// Handle returns the element's render-tree handle, or nil for markup the
// framework did not render.
func (r *Resolver) Handle(node dom.Node) dom.Object {
	if node == nil {
		return nil
	}
	props := node.Properties()
	if props == nil {
		return nil
	}
	keys := props.Keys()
	for _, scheme := range r.schemes {
		for _, k := range keys {
			if !scheme.Match(k) {
				continue
			}
			v, ok := props.Get(k)
			if !ok {
				continue
			}
			if obj, ok := v.(dom.Object); ok && obj != nil {
				return obj
			}
		}
	}
	return nil
}

// Identify returns the nearest owning component of node, or nil when the
// element carries no render-tree handle.
func (r *Resolver) Identify(node dom.Node) *protocol.ComponentInfo {
	f := r.Handle(node)
	if f == nil {
		return nil
	}
	for f != nil {
		if _, host := get(f, "type").(string); !host {
			break
		}
		f, _ = get(f, "return").(dom.Object)
	}
	if f == nil {
		return nil
	}

	info := &protocol.ComponentInfo{
		ComponentName: ComponentName(f),
		Props:         sanitize.Props(get(f, "memoizedProps")),
	}
	if src, ok := get(f, "_debugSource").(dom.Object); ok && src != nil {
		info.Source = &protocol.SourceLocation{
			FileName:     dom.String(get(src, "fileName")),
			LineNumber:   toInt(get(src, "lineNumber")),
			ColumnNumber: toInt(get(src, "columnNumber")),
		}
	}
	switch k := get(f, "key").(type) {
	case string:
		info.Key = k
	case float64:
		info.Key = strconv.FormatFloat(k, 'f', -1, 64)
	}
	if id, ok := node.Attribute(dom.TestIDAttribute); ok {
		info.TestID = id
	}
	return info
}

// ComponentName resolves a display name for a component fiber. The first
// strategy that yields a usable name wins.
func ComponentName(f dom.Object) string {
	typ := get(f, "type")

	if name := dom.String(get(typ, "displayName")); name != "" {
		return name
	}
	if name := nameOf(typ); name != "" && name != Placeholder {
		return name
	}
	if name := nameOf(dom.Lookup(f, "_debugOwner", "elementType")); name != "" {
		return name
	}
	if et := get(f, "elementType"); et != nil {
		if name := dom.String(get(et, "displayName")); name != "" {
			return name
		}
		if name := nameOf(et); name != "" && name != Placeholder {
			return name
		}
	}
	if name := nameOf(get(f, "functionComponent")); name != "" {
		return name
	}
	if fn, ok := typ.(dom.Func); ok {
		if m := functionNameRe.FindStringSubmatch(fn.Source()); m != nil && m[1] != Placeholder {
			return m[1]
		}
	}
	if name := nameOf(dom.Lookup(f, "stateNode", "constructor")); name != "" && name != Placeholder && name != "Object" {
		return name
	}
	for p, _ := get(f, "return").(dom.Object); p != nil; p, _ = get(p, "return").(dom.Object) {
		if name := nameOf(get(p, "type")); name != "" && name != Placeholder {
			return name + ".Child"
		}
	}
	return Placeholder
}

// Available reports whether the page looks framework-rendered. It is a
// diagnostic only.
func (r *Resolver) Available(doc dom.Document) bool {
	if doc == nil {
		return false
	}
	if doc.HasGlobal("__REACT_DEVTOOLS_GLOBAL_HOOK__") || doc.HasGlobal("React") {
		return true
	}
	body := doc.Body()
	if body == nil {
		return false
	}
	children := body.Children()
	if len(children) == 0 {
		return false
	}
	return r.Handle(children[0]) != nil
}

func get(v any, key string) any {
	obj, ok := v.(dom.Object)
	if !ok || obj == nil {
		return nil
	}
	out, _ := obj.Get(key)
	return out
}

// nameOf reads the name of a function or of an object's name field.
func nameOf(v any) string {
	switch t := v.(type) {
	case dom.Func:
		return t.Name()
	case dom.Object:
		return dom.String(get(t, "name"))
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
