// Package dom is the page model the inspector works against. A live browser
// page and the in-memory document both implement it, so the analyzer and the
// inspection session never depend on how a page is actually hosted.
package dom

// Rect is a bounding box in viewport coordinates captured at a point in time.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// NewRect builds a Rect from an origin and size, filling in the edges.
func NewRect(x, y, width, height float64) Rect {
	return Rect{
		X: x, Y: y, Width: width, Height: height,
		Top: y, Left: x, Right: x + width, Bottom: y + height,
	}
}

// Contains reports whether the point lies inside the box. Empty boxes contain nothing.
func (r Rect) Contains(x, y float64) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Attr is one element attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is a handle to a rendered element. Implementations must return the
// same Node value for the same underlying element so handles can be compared
// with == and used as map keys.
type Node interface {
	TagName() string // lower case
	ID() string
	ClassName() string
	Attribute(name string) (string, bool)
	Attributes() []Attr
	Parent() Node // nil at the document root
	Children() []Node
	TextContent() string
	InnerText() string
	// StringProperty reads a live string property such as value, type or placeholder.
	StringProperty(name string) string
	InlineStyle(prop string) string
	ComputedStyle(prop string) string
	// BoundingRect is read from the current layout on every call.
	BoundingRect() Rect
	// Properties exposes the element's own script-visible properties, or nil.
	Properties() Object
}

// Document is a page hosting nodes.
type Document interface {
	Body() Node
	ElementFromPoint(x, y float64) Node
	Location() string
	Title() string
	Viewport() (width, height float64)
	HasGlobal(name string) bool
	AddListener(kind EventKind, capture bool, fn Listener) (remove func())
	Overlay() Overlay
}

// Object is a read-only view over a script object graph.
type Object interface {
	Keys() []string
	// Get returns the property value: nil, bool, float64, string, Object, Array or Func.
	Get(key string) (any, bool)
}

// Array is an Object with positional access.
type Array interface {
	Object
	Len() int
	Index(i int) any
}

// Func is a function value. Functions are objects too, so static fields such
// as displayName are read through Get.
type Func interface {
	Object
	Name() string
	Source() string
}

// Lookup follows a chain of property names and returns the final value.
func Lookup(v any, path ...string) any {
	for _, key := range path {
		obj, ok := v.(Object)
		if !ok || obj == nil {
			return nil
		}
		next, ok := obj.Get(key)
		if !ok {
			return nil
		}
		v = next
	}
	return v
}

// String returns v when it is a non-empty string.
func String(v any) string {
	s, _ := v.(string)
	return s
}
