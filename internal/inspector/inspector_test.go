package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/internal/keys"
	"github.com/nextlevelbuilder/vibetorch/internal/session"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom/memdom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

const (
	hostOrigin = "http://localhost:3000"
	appOrigin  = "http://localhost:5173"
	page       = `<html><body><button id="save">Save</button><a id="home" href="/">Home</a></body></html>`
)

type recorder struct {
	saved []protocol.Selection
	err   error
}

func (r *recorder) Save(_ context.Context, sel protocol.Selection) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, sel)
	return "rec-1", nil
}

type harness struct {
	doc     *memdom.Document
	sess    *session.Session
	in      *Inspector
	copied  []string
	history *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	doc, err := memdom.ParseString(page, memdom.WithURL(appOrigin+"/"), memdom.WithViewport(800, 600))
	if err != nil {
		t.Fatal(err)
	}
	save, _ := doc.QueryOne("#save")
	save.SetRect(10, 100, 100, 30)
	home, _ := doc.QueryOne("#home")
	home.SetRect(10, 200, 100, 30)

	h := &harness{doc: doc, history: &recorder{}}
	clip := export.NewClipboard(
		export.WithPrimary(func(s string) error { h.copied = append(h.copied, s); return nil }),
		export.WithFallback(nil),
	)
	km, err := keys.NewMap("Ctrl+Shift+C", "Alt", true)
	if err != nil {
		t.Fatal(err)
	}
	h.sess = session.New(doc)
	base := []Option{WithKeys(km), WithClipboard(clip, true), WithHistory(h.history)}
	h.in = New(h.sess, append(base, opts...)...)
	h.in.Attach()
	t.Cleanup(h.in.Close)
	return h
}

func (h *harness) pin(t *testing.T, x, y float64) {
	t.Helper()
	h.doc.MoveTo(x, y)
	if d := h.doc.ClickAt(x, y); d != dom.Suppress {
		t.Fatalf("click at (%v, %v) not suppressed", x, y)
	}
}

var toggleChord = dom.KeyEvent{Key: "C", Code: "KeyC", Ctrl: true, Shift: true}

func TestKeys_ToggleEscapeRepeat(t *testing.T) {
	h := newHarness(t)

	if d := h.doc.Press(toggleChord); d != dom.Suppress || !h.sess.Active() {
		t.Fatalf("toggle chord: disposition %v, active %v", d, h.sess.Active())
	}
	if d := h.doc.Press(dom.KeyEvent{Key: "Escape", Code: "Escape"}); d != dom.Continue {
		t.Error("escape was hidden from page handlers")
	}
	if h.sess.Active() {
		t.Fatal("escape did not stop the session")
	}
	if d := h.doc.Press(dom.KeyEvent{Key: "Escape"}); d != dom.Continue {
		t.Error("escape while inactive was consumed")
	}

	rep := toggleChord
	rep.Repeat = true
	h.doc.Press(rep)
	if h.sess.Active() {
		t.Fatal("auto-repeat toggled the session")
	}

	h.doc.Press(dom.KeyEvent{Key: "Alt", Code: "AltLeft", Alt: true})
	if !h.sess.Active() {
		t.Fatal("secondary binding did not toggle")
	}
	h.doc.Press(dom.KeyEvent{Key: "Alt", Code: "AltLeft", Alt: true})
	if h.sess.Active() {
		t.Fatal("secondary binding did not toggle back")
	}
}

func TestKeys_Disabled(t *testing.T) {
	h := newHarness(t)
	h.in.SetKeys(keys.Map{Primary: keys.MustParse("Ctrl+Shift+C"), Enabled: false})
	if d := h.doc.Press(toggleChord); d != dom.Continue || h.sess.Active() {
		t.Fatal("disabled shortcuts still toggled")
	}
}

func TestEnter_ExportsAndStops(t *testing.T) {
	h := newHarness(t, WithClock(func() time.Time { return time.UnixMilli(42) }))

	h.doc.Press(toggleChord)
	if d := h.doc.Press(dom.KeyEvent{Key: "Enter"}); d != dom.Continue {
		t.Fatal("enter with nothing pinned was consumed")
	}
	h.pin(t, 20, 110)
	h.pin(t, 20, 210)

	h.doc.Press(dom.KeyEvent{Key: "Enter", Code: "Enter"})

	if len(h.copied) != 1 {
		t.Fatalf("clipboard writes = %d", len(h.copied))
	}
	var sel protocol.Selection
	if err := json.Unmarshal([]byte(h.copied[0]), &sel); err != nil {
		t.Fatal(err)
	}
	if len(sel.Elements) != 2 || sel.Elements[0].Index != 1 || sel.Elements[1].Index != 2 {
		t.Fatalf("elements = %+v", sel.Elements)
	}
	if sel.Elements[0].Selector != "#save" || sel.Elements[1].Selector != "#home" {
		t.Errorf("order = %s, %s", sel.Elements[0].Selector, sel.Elements[1].Selector)
	}
	if sel.Context.URL != appOrigin+"/" || sel.Timestamp != 42 {
		t.Errorf("context = %+v, ts %d", sel.Context, sel.Timestamp)
	}
	if len(h.history.saved) != 1 {
		t.Errorf("history saves = %d", len(h.history.saved))
	}
	if h.sess.Active() || h.sess.PinCount() != 0 {
		t.Errorf("after export: active %v, pins %d", h.sess.Active(), h.sess.PinCount())
	}
}

func TestExport_Errors(t *testing.T) {
	h := newHarness(t)
	if _, err := h.in.Export(context.Background()); !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("err = %v, want ErrNothingSelected", err)
	}

	failing := export.NewClipboard(export.WithPrimary(func(string) error { return errors.New("denied") }), export.WithFallback(nil))
	h2 := newHarness(t, WithClipboard(failing, true))
	h2.sess.Start()
	h2.pin(t, 20, 110)
	if _, err := h2.in.Export(context.Background()); !errors.Is(err, export.ErrClipboardUnavailable) {
		t.Fatalf("err = %v, want ErrClipboardUnavailable", err)
	}
	if h2.sess.PinCount() != 1 || !h2.sess.Active() {
		t.Error("failed export cleared the selection")
	}

	h2.in.SetCopyOnExport(false)
	if _, err := h2.in.Export(context.Background()); err != nil {
		t.Fatalf("export without clipboard: %v", err)
	}
}

func TestExport_HistoryFailureDoesNotFail(t *testing.T) {
	h := newHarness(t)
	h.history.err = errors.New("disk full")
	h.sess.Start()
	h.pin(t, 20, 110)
	var hooked int
	h.in.onExport = func(protocol.Selection) { hooked++ }
	if _, err := h.in.Export(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hooked != 1 {
		t.Errorf("hook calls = %d", hooked)
	}
}

type parent struct {
	win      *bridge.Window
	app      *bridge.Window
	b        *bridge.Bridge
	messages []protocol.Message
	replies  map[string]protocol.ResponseEnvelope
}

func newParent(t *testing.T) *parent {
	t.Helper()
	p := &parent{win: bridge.NewWindow(hostOrigin), replies: make(map[string]protocol.ResponseEnvelope)}
	p.app = p.win.Embed(appOrigin)
	p.b = bridge.New(p.win, appOrigin)
	p.b.OnMessage(func(ev bridge.Event) {
		p.messages = append(p.messages, ev.Message)
		var env protocol.ResponseEnvelope
		if ev.Decode(&env) == nil && env.RequestID != "" {
			p.replies[ev.Name] = env
		}
	})
	return p
}

func (p *parent) send(t *testing.T, name string, data any) {
	t.Helper()
	if err := p.b.SendToChild(p.win.Proxy(p.app), name, data); err != nil {
		t.Fatal(err)
	}
}

func (p *parent) types() []string {
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.Type
	}
	return out
}

func TestEmbedded_CommandsAndRequests(t *testing.T) {
	p := newParent(t)
	child := bridge.New(p.app, hostOrigin)
	doc, err := memdom.ParseString(page, memdom.WithURL(appOrigin+"/"))
	if err != nil {
		t.Fatal(err)
	}
	save, _ := doc.QueryOne("#save")
	save.SetRect(10, 100, 100, 30)
	sess := session.New(doc, session.Embedded(child))
	in := New(sess, WithBridge(child), WithClipboard(export.NewClipboard(), false))
	in.Attach()
	defer in.Close()

	p.send(t, protocol.CommandStartInspector, nil)
	if !sess.Active() {
		t.Fatal("start-inspector ignored")
	}

	p.send(t, protocol.RequestStatus, map[string]string{"requestId": "s1"})
	var st Status
	if err := json.Unmarshal(p.replies["status-response"].Data, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Active || !st.Embedded || st.URL != appOrigin+"/" {
		t.Errorf("status = %+v", st)
	}

	p.send(t, protocol.RequestExport, map[string]string{"requestId": "e1"})
	if env := p.replies["export-response"]; env.Error == nil || env.Error.Code != protocol.ErrFailedPrecondition {
		t.Errorf("empty export reply = %+v", env)
	}

	doc.MoveTo(20, 110)
	doc.ClickAt(20, 110)
	p.send(t, protocol.RequestExport, map[string]string{"requestId": "e2"})
	env := p.replies["export-response"]
	if env.RequestID != "e2" || env.Error != nil {
		t.Fatalf("export reply = %+v", env)
	}

	p.send(t, protocol.RequestPing, map[string]string{"requestId": "p1"})
	if p.replies["ping-response"].RequestID != "p1" {
		t.Error("ping not answered")
	}

	p.send(t, protocol.CommandToggleInspector, nil)
	p.send(t, protocol.CommandStopInspector, nil)
	if sess.Active() {
		t.Error("stop-inspector ignored")
	}

	want := []string{
		"vibetorch:inspector-started",
		"vibetorch:status-response",
		"vibetorch:export-response",
		"vibetorch:selected",
		"vibetorch:selection",
		"vibetorch:inspector-stopped",
		"vibetorch:export-response",
		"vibetorch:ping-response",
		"vibetorch:inspector-started",
		"vibetorch:inspector-stopped",
	}
	got := p.types()
	if len(got) != len(want) {
		t.Fatalf("messages = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTopLevel_IgnoresBridgeCommands(t *testing.T) {
	top := bridge.NewWindow(appOrigin)
	b := bridge.New(top, bridge.AnyOrigin)
	h := newHarness(t, WithBridge(b))
	if n := b.HandlerCount(protocol.CommandStartInspector); n != 0 {
		t.Errorf("top-level inspector registered %d command handlers", n)
	}
	if h.in.Status().Embedded {
		t.Error("status reports embedded at top level")
	}
}

func TestAttachClose(t *testing.T) {
	h := newHarness(t, RegisterGlobal())
	if session.Current() != h.sess {
		t.Fatal("session not registered")
	}
	if n := h.doc.ListenerCount(dom.KeyDown, true); n != 1 {
		t.Fatalf("key listeners = %d", n)
	}
	h.in.Attach()
	if n := h.doc.ListenerCount(dom.KeyDown, true); n != 1 {
		t.Fatalf("second attach added listeners: %d", n)
	}
	h.sess.Start()
	h.pin(t, 20, 110)

	h.in.Close()
	if session.Current() != nil {
		t.Error("session still registered")
	}
	if h.doc.ListenerCount(dom.KeyDown, true) != 0 || h.sess.Active() || h.sess.PinCount() != 0 {
		t.Error("close left state behind")
	}
}

func TestPageGone(t *testing.T) {
	h := newHarness(t)
	h.sess.Start()
	h.pin(t, 20, 110)
	h.in.PageGone()
	if h.sess.Active() || h.sess.PinCount() != 0 || h.doc.InspectorOverlay().Mounted() {
		t.Error("page teardown left the session running")
	}
}
