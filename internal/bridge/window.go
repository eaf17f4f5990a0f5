package bridge

import (
	"sort"
	"sync"
)

// Window is an in-process browsing context. Windows form a tree of frames;
// posting delivers synchronously to the receiver's subscribers with the
// sender's origin attached.
type Window struct {
	origin string
	parent *Window

	mu     sync.Mutex
	subs   map[uint64]func(Inbound)
	nextID uint64
}

// NewWindow creates a top-level window.
func NewWindow(origin string) *Window {
	return &Window{origin: origin, subs: make(map[uint64]func(Inbound))}
}

// Embed creates a child frame loaded from origin.
func (w *Window) Embed(origin string) *Window {
	child := NewWindow(origin)
	child.parent = w
	return child
}

// Origin returns the window's origin.
func (w *Window) Origin() string { return w.origin }

// Parent returns an endpoint for the embedding window, or nil at top level.
func (w *Window) Parent() Endpoint {
	if w.parent == nil {
		return nil
	}
	return w.Proxy(w.parent)
}

// Proxy returns an endpoint that posts from w into target.
func (w *Window) Proxy(target *Window) Endpoint {
	return windowProxy{from: w, to: target}
}

// Subscribe registers fn for every message posted to w.
func (w *Window) Subscribe(fn func(Inbound)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Listeners returns the number of live subscribers.
func (w *Window) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func (w *Window) deliver(in Inbound) {
	w.mu.Lock()
	ids := make([]uint64, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Inbound), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.subs[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(in)
	}
}

type windowProxy struct {
	from *Window
	to   *Window
}

func (p windowProxy) PostMessage(data []byte, targetOrigin string) error {
	if targetOrigin != AnyOrigin && targetOrigin != p.to.origin {
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.to.deliver(Inbound{
		Origin: p.from.origin,
		Data:   buf,
		Source: windowProxy{from: p.to, to: p.from},
	})
	return nil
}

var (
	_ Frame    = (*Window)(nil)
	_ Endpoint = windowProxy{}
)
