package memdom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// defaultStyles are the computed values reported when nothing else applies.
var defaultStyles = map[string]string{
	"color":           "rgb(0, 0, 0)",
	"backgroundColor": "rgba(0, 0, 0, 0)",
	"fontSize":        "16px",
	"fontWeight":      "400",
	"fontFamily":      "sans-serif",
	"display":         "block",
	"position":        "static",
	"visibility":      "visible",
	"opacity":         "1",
	"zIndex":          "auto",
	"overflow":        "visible",
	"pointerEvents":   "auto",
}

// Element is an element of a Document. There is exactly one *Element per
// underlying HTML node, so elements compare by identity.
type Element struct {
	doc *Document
	n   *html.Node

	rect     dom.Rect
	styles   map[string]string
	strProps map[string]string
	props    *Object
}

var _ dom.Node = (*Element)(nil)

func (e *Element) TagName() string { return strings.ToLower(e.n.Data) }

func (e *Element) ID() string {
	v, _ := e.Attribute("id")
	return v
}

func (e *Element) ClassName() string {
	v, _ := e.Attribute("class")
	return v
}

func (e *Element) Attribute(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.attrLocked(name)
}

func (e *Element) attrLocked(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *Element) Attributes() []dom.Attr {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	out := make([]dom.Attr, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		out = append(out, dom.Attr{Name: a.Key, Value: a.Val})
	}
	return out
}

func (e *Element) Parent() dom.Node {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if el := e.doc.wrap(p); el != nil {
				return el
			}
			return nil
		}
	}
	return nil
}

func (e *Element) Children() []dom.Node {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var out []dom.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if el := e.doc.wrap(c); el != nil {
			out = append(out, el)
		}
	}
	return out
}

func (e *Element) TextContent() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return textOf(e.n, false)
}

func (e *Element) InnerText() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return textOf(e.n, true)
}

func (e *Element) StringProperty(name string) string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if v, ok := e.strProps[name]; ok {
		return v
	}
	v, ok := e.attrLocked(name)
	if !ok && name == "type" && e.n.Data == "input" {
		return "text"
	}
	return v
}

func (e *Element) InlineStyle(prop string) string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.inlineLocked(prop)
}

func (e *Element) inlineLocked(prop string) string {
	style, ok := e.attrLocked("style")
	if !ok {
		return ""
	}
	want := kebab(prop)
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), want) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (e *Element) ComputedStyle(prop string) string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.styleLocked(prop)
}

func (e *Element) styleLocked(prop string) string {
	if v, ok := e.styles[prop]; ok {
		return v
	}
	if v := e.inlineLocked(prop); v != "" {
		return v
	}
	return defaultStyles[prop]
}

func (e *Element) hiddenSelf() bool {
	return e.styleLocked("display") == "none" || e.styleLocked("visibility") == "hidden"
}

func (e *Element) BoundingRect() dom.Rect {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.rect
}

func (e *Element) Properties() dom.Object {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if e.props == nil {
		return nil
	}
	return e.props
}

// SetRect moves the element to a new box.
func (e *Element) SetRect(x, y, width, height float64) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.rect = dom.NewRect(x, y, width, height)
	return e
}

// SetStyle overrides a computed style property (camelCase name).
func (e *Element) SetStyle(prop, value string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.styles == nil {
		e.styles = make(map[string]string)
	}
	e.styles[prop] = value
	return e
}

// ClearStyle drops a computed style override.
func (e *Element) ClearStyle(prop string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	delete(e.styles, prop)
	return e
}

// SetStringProperty sets a live string property such as value.
func (e *Element) SetStringProperty(name, value string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.strProps == nil {
		e.strProps = make(map[string]string)
	}
	e.strProps[name] = value
	return e
}

// SetProperty attaches a script-visible property to the element.
func (e *Element) SetProperty(key string, value any) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.props == nil {
		e.props = NewObject()
	}
	e.props.Set(key, value)
	return e
}

// SetAttribute sets or replaces an attribute.
func (e *Element) SetAttribute(name, value string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for i, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			e.n.Attr[i].Val = value
			return e
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	return e
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(text string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return e
}

// AppendChild moves child under e.
func (e *Element) AppendChild(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if child.n.Parent != nil {
		child.n.Parent.RemoveChild(child.n)
	}
	e.n.AppendChild(child.n)
	e.doc.index(child.n)
}

// Remove detaches e from the tree.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// Attached reports whether e is connected to the document.
func (e *Element) Attached() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for p := e.n; p != nil; p = p.Parent {
		if p == e.doc.root {
			return true
		}
	}
	return false
}

// kebab converts a camelCase style name to its CSS property name.
func kebab(prop string) string {
	var b strings.Builder
	for _, r := range prop {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
