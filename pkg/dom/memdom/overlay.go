package memdom

import (
	"errors"
	"sync"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

var errNoHost = errors.New("memdom: document has no element to host the overlay")

// Overlay renders inspector boxes as real elements under a reserved root so
// that they take part in hit-testing exactly like page content.
type Overlay struct {
	doc *Document

	mu     sync.Mutex
	root   *Element
	hidden bool
	boxes  []*Box
}

var _ dom.Overlay = (*Overlay)(nil)

func (o *Overlay) Mount() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.root != nil {
		return nil
	}
	root := o.doc.CreateElement("div")
	root.SetAttribute("id", dom.OverlayRootID)
	root.SetAttribute(dom.IgnoreAttribute, "true")
	root.SetAttribute("style", "position: fixed; top: 0; left: 0; z-index: "+dom.OverlayZIndex+"; pointer-events: none")
	w, h := o.doc.Viewport()
	root.SetRect(0, 0, w, h)

	host, _ := o.doc.Body().(*Element)
	if host == nil {
		o.doc.mu.RLock()
		host = o.doc.wrap(findTag(o.doc.root, "html"))
		o.doc.mu.RUnlock()
	}
	if host == nil {
		return errNoHost
	}
	host.AppendChild(root)
	o.root = root
	o.hidden = false
	return nil
}

func (o *Overlay) Unmount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.root == nil {
		return
	}
	o.root.Remove()
	o.root = nil
	o.boxes = nil
	o.hidden = false
}

func (o *Overlay) Mounted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.root != nil
}

func (o *Overlay) SetHidden(hidden bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hidden = hidden
	if o.root == nil {
		return
	}
	if hidden {
		o.root.SetStyle("display", "none")
	} else {
		o.root.ClearStyle("display")
	}
}

func (o *Overlay) Hidden() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hidden
}

func (o *Overlay) NewBox(role dom.BoxRole) dom.Box {
	el := o.doc.CreateElement("div")
	el.SetAttribute("class", dom.InspectorClass+"-box")
	el.SetAttribute(dom.BoxRoleAttribute, role.String())
	el.SetStyle("display", "none")

	b := &Box{overlay: o, el: el, role: role}
	o.mu.Lock()
	if o.root != nil {
		o.root.AppendChild(el)
	}
	o.boxes = append(o.boxes, b)
	o.mu.Unlock()
	return b
}

// Root returns the mounted root element, or nil.
func (o *Overlay) Root() *Element {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.root
}

// Boxes returns the boxes still attached under the root, optionally filtered by role.
func (o *Overlay) Boxes(roles ...dom.BoxRole) []*Box {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*Box
	for _, b := range o.boxes {
		if !b.el.Attached() {
			continue
		}
		if len(roles) == 0 {
			out = append(out, b)
			continue
		}
		for _, r := range roles {
			if b.role == r {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Box is an overlay element.
type Box struct {
	overlay *Overlay
	el      *Element
	role    dom.BoxRole

	mu      sync.Mutex
	text    string
	tone    dom.Tone
	visible bool
}

var _ dom.Box = (*Box)(nil)

func (b *Box) Role() dom.BoxRole { return b.role }

func (b *Box) Place(r dom.Rect) {
	b.el.SetRect(r.X, r.Y, r.Width, r.Height)
}

func (b *Box) SetText(text string) {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
	b.el.SetText(text)
}

func (b *Box) SetTone(t dom.Tone) {
	b.mu.Lock()
	b.tone = t
	b.mu.Unlock()
	b.el.SetStyle("borderColor", t.Color())
}

func (b *Box) Show() {
	b.mu.Lock()
	b.visible = true
	b.mu.Unlock()
	b.el.ClearStyle("display")
}

func (b *Box) Hide() {
	b.mu.Lock()
	b.visible = false
	b.mu.Unlock()
	b.el.SetStyle("display", "none")
}

func (b *Box) Remove() {
	b.el.Remove()
}

// Element returns the element backing the box.
func (b *Box) Element() *Element { return b.el }

// Text returns the last label text.
func (b *Box) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Tone returns the current colour scheme.
func (b *Box) Tone() dom.Tone {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tone
}

// Visible reports whether Show was called more recently than Hide.
func (b *Box) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Rect returns the box geometry.
func (b *Box) Rect() dom.Rect { return b.el.BoundingRect() }
