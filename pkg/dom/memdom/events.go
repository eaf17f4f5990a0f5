package memdom

import (
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// AddListener registers fn for kind. Capture listeners run before bubble
// listeners; within a phase listeners run in registration order.
func (d *Document) AddListener(kind dom.EventKind, capture bool, fn dom.Listener) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, &listener{id: id, kind: kind, capture: capture, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns how many listeners are registered for kind in the given phase.
func (d *Document) ListenerCount(kind dom.EventKind, capture bool) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, l := range d.listeners {
		if l.kind == kind && l.capture == capture {
			n++
		}
	}
	return n
}

// Dispatch delivers ev to capture listeners and then bubble listeners,
// stopping at the first listener that suppresses it.
func (d *Document) Dispatch(ev dom.Event) dom.Disposition {
	d.mu.RLock()
	var capture, bubble []dom.Listener
	for _, l := range d.listeners {
		if l.kind != ev.Kind {
			continue
		}
		if l.capture {
			capture = append(capture, l.fn)
		} else {
			bubble = append(bubble, l.fn)
		}
	}
	d.mu.RUnlock()

	for _, fn := range capture {
		if fn(ev) == dom.Suppress {
			return dom.Suppress
		}
	}
	for _, fn := range bubble {
		if fn(ev) == dom.Suppress {
			return dom.Suppress
		}
	}
	return dom.Continue
}

// MoveTo dispatches a pointer move at (x, y) targeting the element under the point.
func (d *Document) MoveTo(x, y float64) dom.Disposition {
	return d.Dispatch(dom.Event{Kind: dom.PointerMove, X: x, Y: y, Target: d.targetAt(x, y)})
}

// ClickAt dispatches a click at (x, y) targeting the element under the point.
func (d *Document) ClickAt(x, y float64) dom.Disposition {
	return d.Dispatch(dom.Event{Kind: dom.Click, X: x, Y: y, Target: d.targetAt(x, y)})
}

// Scroll dispatches a scroll event.
func (d *Document) Scroll() dom.Disposition {
	return d.Dispatch(dom.Event{Kind: dom.Scroll})
}

// Leave dispatches a pointer leaving the window.
func (d *Document) Leave() dom.Disposition {
	return d.Dispatch(dom.Event{Kind: dom.PointerLeave})
}

// Press dispatches a key down.
func (d *Document) Press(k dom.KeyEvent) dom.Disposition {
	return d.Dispatch(dom.Event{Kind: dom.KeyDown, Key: k})
}
