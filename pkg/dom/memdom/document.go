// Package memdom is an in-memory page: parsed HTML plus settable layout,
// computed styles, script-visible properties and globals. It implements the
// dom interfaces without a browser, which makes it the backend for offline
// analysis and for tests of everything built on top of the page model.
package memdom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// Document is an in-memory page.
type Document struct {
	mu sync.RWMutex

	root    *html.Node
	elems   map[*html.Node]*Element
	url     string
	width   float64
	height  float64
	globals map[string]bool

	listeners []*listener
	nextID    int

	overlay *Overlay
}

type listener struct {
	id      int
	kind    dom.EventKind
	capture bool
	fn      dom.Listener
}

// Option configures a Document.
type Option func(*Document)

// WithURL sets the page location.
func WithURL(u string) Option {
	return func(d *Document) { d.url = u }
}

// WithViewport sets the viewport size (default 1280x800).
func WithViewport(width, height float64) Option {
	return func(d *Document) { d.width, d.height = width, height }
}

// Parse builds a Document from HTML.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{
		root:    root,
		elems:   make(map[*html.Node]*Element),
		url:     "about:blank",
		width:   1280,
		height:  800,
		globals: make(map[string]bool),
	}
	for _, o := range opts {
		o(d)
	}
	d.index(root)
	d.overlay = &Overlay{doc: d}
	return d, nil
}

// ParseString is Parse for a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// index wraps every element node below n.
func (d *Document) index(n *html.Node) {
	if n.Type == html.ElementNode {
		if _, ok := d.elems[n]; !ok {
			d.elems[n] = &Element{doc: d, n: n}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c)
	}
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return d.elems[n]
}

// Query returns every element matching a CSS selector, in document order.
func (d *Document) Query(selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Element
	for _, n := range sel.MatchAll(d.root) {
		if el := d.wrap(n); el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

// QueryOne returns the first element matching selector.
func (d *Document) QueryOne(selector string) (*Element, error) {
	els, err := d.Query(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return els[0], nil
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	d.mu.Lock()
	defer d.mu.Unlock()
	el := &Element{doc: d, n: n}
	d.elems[n] = el
	return el
}

// SetTitle replaces the document title.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	head := findTag(d.root, "head")
	t := findTag(d.root, "title")
	if t == nil {
		if head == nil {
			return
		}
		t = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(t)
		d.elems[t] = &Element{doc: d, n: t}
	}
	for c := t.FirstChild; c != nil; {
		next := c.NextSibling
		t.RemoveChild(c)
		c = next
	}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// SetGlobal marks a window global as present or absent.
func (d *Document) SetGlobal(name string, present bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globals[name] = present
}

// SetURL changes the page location.
func (d *Document) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

func (d *Document) Body() dom.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el := d.wrap(findTag(d.root, "body")); el != nil {
		return el
	}
	return nil
}

func (d *Document) Location() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t := findTag(d.root, "title")
	if t == nil {
		return ""
	}
	return strings.TrimSpace(textOf(t, false))
}

func (d *Document) Viewport() (float64, float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.width, d.height
}

func (d *Document) HasGlobal(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.globals[name]
}

func (d *Document) Overlay() dom.Overlay { return d.overlay }

// InspectorOverlay returns the concrete overlay for inspection in tests.
func (d *Document) InspectorOverlay() *Overlay { return d.overlay }

// ElementFromPoint returns the topmost rendered element whose box contains
// the point. Later elements in document order paint above earlier ones.
// Like a browser without pointer-events support, overlays covering the point
// win, which is why callers hide their own overlay before querying.
func (d *Document) ElementFromPoint(x, y float64) dom.Node {
	if el := d.hitTest(x, y, false); el != nil {
		return el
	}
	return nil
}

// targetAt resolves the element an input event at (x, y) is delivered to.
// Elements with pointer-events: none are transparent to input.
func (d *Document) targetAt(x, y float64) dom.Node {
	if el := d.hitTest(x, y, true); el != nil {
		return el
	}
	return nil
}

func (d *Document) hitTest(x, y float64, pointerEvents bool) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var hit *Element
	var walk func(n *html.Node, transparent bool)
	walk = func(n *html.Node, transparent bool) {
		if n.Type == html.ElementNode {
			el := d.elems[n]
			if el == nil || el.hiddenSelf() {
				return
			}
			if pointerEvents && el.styleLocked("pointerEvents") == "none" {
				transparent = true
			}
			if !transparent && el.rect.Contains(x, y) {
				hit = el
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, transparent)
		}
	}
	walk(d.root, false)
	return hit
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node, rendered bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if rendered && (n.Data == "script" || n.Data == "style") {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
