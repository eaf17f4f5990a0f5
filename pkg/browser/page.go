package browser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

type listener struct {
	id      int
	kind    dom.EventKind
	capture bool
	fn      dom.Listener
}

// Page is a live Chrome page implementing dom.Document. Nodes are
// canonicalized per backend node id and script objects per page-side
// identity, so the same element or object always yields the same Go value
// until the page navigates.
type Page struct {
	page    *rod.Page
	logger  *slog.Logger
	overlay *Overlay
	onClose func()
	cleanup []func() error

	mu        sync.Mutex
	nodes     map[proto.DOMBackendNodeID]*Node
	objects   map[int]dom.Object
	identify  func(proto.RuntimeRemoteObjectID) (int, bool)
	listeners []*listener
	nextID    int
	teardowns map[int]func()
	closed    bool
}

var _ dom.Document = (*Page)(nil)

func newPage(rp *rod.Page, logger *slog.Logger) (*Page, error) {
	p := &Page{
		page:      rp,
		logger:    logger,
		nodes:     make(map[proto.DOMBackendNodeID]*Node),
		objects:   make(map[int]dom.Object),
		teardowns: make(map[int]func()),
	}
	p.identify = p.objectIdentity
	p.overlay = &Overlay{page: p}

	if err := (proto.DOMEnable{}).Call(rp); err != nil {
		return nil, fmt.Errorf("enable DOM: %w", err)
	}
	stop, err := rp.Expose(bindingName, p.handleBinding)
	if err != nil {
		return nil, fmt.Errorf("expose input binding: %w", err)
	}
	p.cleanup = append(p.cleanup, stop)
	for _, js := range []string{listenerScript(bindingName), overlayScript} {
		remove, err := rp.EvalOnNewDocument(js)
		if err != nil {
			return nil, fmt.Errorf("install page script: %w", err)
		}
		p.cleanup = append(p.cleanup, remove)
	}

	go rp.EachEvent(func(e *proto.PageFrameNavigated) {
		if e.Frame != nil && e.Frame.ParentID == "" {
			p.navigated(e.Frame.URL)
		}
	}, func(e *proto.InspectorDetached) bool {
		p.teardown("page closed: " + e.Reason)
		return true
	})()
	return p, nil
}

// Rod returns the underlying rod page.
func (p *Page) Rod() *rod.Page { return p.page }

// OnTeardown registers fn to run when the document goes away: on top-level
// navigation, when the page closes, and when the browser stops.
func (p *Page) OnTeardown(fn func()) (remove func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.teardowns[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.teardowns, id)
		p.mu.Unlock()
	}
}

func (p *Page) navigated(url string) {
	p.logger.Debug("browser: page navigated", "url", url)
	p.notifyTeardown()
	p.syncClickBlocking()
}

func (p *Page) teardown(reason string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.logger.Debug("browser: page teardown", "reason", reason)
	p.notifyTeardown()
	if p.onClose != nil {
		p.onClose()
	}
}

// notifyTeardown drops every cached node, object and overlay state, then runs the
// teardown callbacks.
func (p *Page) notifyTeardown() {
	p.mu.Lock()
	p.nodes = make(map[proto.DOMBackendNodeID]*Node)
	p.objects = make(map[int]dom.Object)
	fns := make([]func(), 0, len(p.teardowns))
	for _, fn := range p.teardowns {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	p.overlay.reset()
	for _, fn := range fns {
		fn()
	}
}

// Close removes the injected scripts and closes the page.
func (p *Page) Close() error {
	for _, fn := range p.cleanup {
		fn()
	}
	p.teardown("closed")
	return p.page.Close()
}

// Body implements dom.Document.
func (p *Page) Body() dom.Node {
	obj, err := p.page.Evaluate(rod.Eval(jsBody).ByObject())
	if err != nil {
		p.logger.Debug("browser: read body failed", "error", err)
		return nil
	}
	return p.nodeFromObject(obj)
}

// ElementFromPoint implements dom.Document. Elements with pointer-events:
// none are not skipped, matching what a user sees under the cursor.
func (p *Page) ElementFromPoint(x, y float64) dom.Node {
	res, err := proto.DOMGetNodeForLocation{
		X:                       int(x),
		Y:                       int(y),
		IgnorePointerEventsNone: true,
	}.Call(p.page)
	if err != nil {
		return nil
	}
	return p.nodeFromBackendID(res.BackendNodeID)
}

// Location implements dom.Document.
func (p *Page) Location() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title implements dom.Document.
func (p *Page) Title() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// Viewport implements dom.Document.
func (p *Page) Viewport() (float64, float64) {
	res, err := p.page.Eval(jsViewport)
	if err != nil {
		return 0, 0
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return 0, 0
	}
	return arr[0].Num(), arr[1].Num()
}

// HasGlobal implements dom.Document.
func (p *Page) HasGlobal(name string) bool {
	res, err := p.page.Eval(jsHasGlobal, name)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// Overlay implements dom.Document.
func (p *Page) Overlay() dom.Overlay { return p.overlay }

// AddListener implements dom.Document. Capture listeners run before bubble
// listeners; a Suppress verdict stops dispatch. While any capture click
// listener is registered, page clicks outside inspector UI are blocked in
// the page itself.
func (p *Page) AddListener(kind dom.EventKind, capture bool, fn dom.Listener) func() {
	p.mu.Lock()
	p.nextID++
	l := &listener{id: p.nextID, kind: kind, capture: capture, fn: fn}
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()
	if kind == dom.Click && capture {
		p.syncClickBlocking()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			for i, cur := range p.listeners {
				if cur == l {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					break
				}
			}
			p.mu.Unlock()
			if kind == dom.Click && capture {
				p.syncClickBlocking()
			}
		})
	}
}

func (p *Page) syncClickBlocking() {
	p.mu.Lock()
	block := false
	for _, l := range p.listeners {
		if l.kind == dom.Click && l.capture {
			block = true
			break
		}
	}
	p.mu.Unlock()
	if _, err := p.page.Eval(jsBlock, block); err != nil {
		p.logger.Debug("browser: sync click blocking failed", "error", err)
	}
}

// handleBinding receives events from the listener script.
func (p *Page) handleBinding(arg gson.JSON) (any, error) {
	var in inboundEvent
	if err := json.Unmarshal([]byte(arg.JSON("", "")), &in); err != nil {
		return nil, fmt.Errorf("decode input event: %w", err)
	}
	ev, ok := p.event(in)
	if !ok {
		return nil, nil
	}
	p.dispatch(ev)
	return nil, nil
}

func (p *Page) event(in inboundEvent) (dom.Event, bool) {
	kind, ok := dom.ParseEventKind(in.Kind)
	if !ok {
		return dom.Event{}, false
	}
	ev := dom.Event{Kind: kind, X: in.X, Y: in.Y, Key: in.Key.dom()}
	if kind != dom.Scroll {
		ev.Target = p.target(in.ID)
	}
	return ev, true
}

// target resolves the event target recorded by the listener script.
func (p *Page) target(id int) dom.Node {
	obj, err := p.page.Evaluate(rod.Eval(jsTarget, id).ByObject())
	if err != nil {
		return nil
	}
	return p.nodeFromObject(obj)
}

func (p *Page) dispatch(ev dom.Event) {
	p.mu.Lock()
	var capture, bubble []dom.Listener
	for _, l := range p.listeners {
		if l.kind != ev.Kind {
			continue
		}
		if l.capture {
			capture = append(capture, l.fn)
		} else {
			bubble = append(bubble, l.fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range append(capture, bubble...) {
		if fn(ev) == dom.Suppress {
			return
		}
	}
}

// nodeFromObject canonicalizes a remote element handle. Non-element and
// null objects yield an untyped nil.
func (p *Page) nodeFromObject(obj *proto.RuntimeRemoteObject) dom.Node {
	if obj == nil || obj.ObjectID == "" || obj.Subtype != proto.RuntimeRemoteObjectSubtypeNode {
		return nil
	}
	desc, err := proto.DOMDescribeNode{ObjectID: obj.ObjectID}.Call(p.page)
	if err != nil || desc.Node == nil || desc.Node.NodeType != 1 {
		return nil
	}
	id := desc.Node.BackendNodeID

	p.mu.Lock()
	if n, ok := p.nodes[id]; ok {
		p.mu.Unlock()
		return n
	}
	p.mu.Unlock()

	el, err := p.page.ElementFromObject(obj)
	if err != nil {
		return nil
	}
	return p.canonical(id, el)
}

func (p *Page) nodeFromBackendID(id proto.DOMBackendNodeID) dom.Node {
	if id == 0 {
		return nil
	}
	p.mu.Lock()
	if n, ok := p.nodes[id]; ok {
		p.mu.Unlock()
		return n
	}
	p.mu.Unlock()

	res, err := proto.DOMResolveNode{BackendNodeID: id}.Call(p.page)
	if err != nil || res.Object == nil {
		return nil
	}
	if res.Object.Subtype != proto.RuntimeRemoteObjectSubtypeNode {
		return nil
	}
	el, err := p.page.ElementFromObject(res.Object)
	if err != nil {
		return nil
	}
	n := p.canonical(id, el)
	if n.TagName() == "" {
		// text node under the cursor; report its element
		return n.Parent()
	}
	return n
}

func (p *Page) canonical(id proto.DOMBackendNodeID, el *rod.Element) *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.nodes[id]; ok {
		return n
	}
	n := &Node{page: p, id: id, el: el}
	p.nodes[id] = n
	return n
}
