package memdom

import (
	"testing"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

const page = `<!doctype html><html><head><title> Demo </title></head><body>
<main class="app shell"><button id="save" class="btn primary">Save</button><span>hi<script>x()</script></span></main>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	d, err := ParseString(page, WithURL("http://localhost:5173/"), WithViewport(1000, 700))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func mustQuery(t *testing.T, d *Document, sel string) *Element {
	t.Helper()
	el, err := d.QueryOne(sel)
	if err != nil {
		t.Fatalf("query %q: %v", sel, err)
	}
	return el
}

func TestParse_Basics(t *testing.T) {
	d := mustParse(t)
	if d.Title() != "Demo" {
		t.Errorf("title = %q", d.Title())
	}
	if d.Location() != "http://localhost:5173/" {
		t.Errorf("location = %q", d.Location())
	}
	w, h := d.Viewport()
	if w != 1000 || h != 700 {
		t.Errorf("viewport = %vx%v", w, h)
	}
	if d.Body() == nil || d.Body().TagName() != "body" {
		t.Fatalf("body not found")
	}
}

func TestElement_Identity(t *testing.T) {
	d := mustParse(t)
	btn := mustQuery(t, d, "#save")
	again := mustQuery(t, d, "button.btn")
	if dom.Node(btn) != dom.Node(again) {
		t.Fatal("same element must yield the same handle")
	}
	if btn.Parent() != dom.Node(mustQuery(t, d, "main")) {
		t.Error("parent mismatch")
	}
}

func TestElement_TextAndStyles(t *testing.T) {
	d := mustParse(t)
	span := mustQuery(t, d, "span")
	if got := span.TextContent(); got != "hix()" {
		t.Errorf("textContent = %q", got)
	}
	if got := span.InnerText(); got != "hi" {
		t.Errorf("innerText = %q", got)
	}

	btn := mustQuery(t, d, "#save")
	if got := btn.ComputedStyle("display"); got != "block" {
		t.Errorf("default display = %q", got)
	}
	btn.SetAttribute("style", "z-index: 5; color: red")
	if got := btn.InlineStyle("zIndex"); got != "5" {
		t.Errorf("inline zIndex = %q", got)
	}
	if got := btn.ComputedStyle("color"); got != "red" {
		t.Errorf("computed color from inline = %q", got)
	}
	btn.SetStyle("color", "rgb(1, 2, 3)")
	if got := btn.ComputedStyle("color"); got != "rgb(1, 2, 3)" {
		t.Errorf("computed override = %q", got)
	}
}

func TestElement_StringProperty(t *testing.T) {
	d, err := ParseString(`<input placeholder="Email"><input type="password" value="x">`)
	if err != nil {
		t.Fatal(err)
	}
	els, _ := d.Query("input")
	if got := els[0].StringProperty("type"); got != "text" {
		t.Errorf("default input type = %q", got)
	}
	if got := els[0].StringProperty("placeholder"); got != "Email" {
		t.Errorf("placeholder = %q", got)
	}
	els[1].SetStringProperty("value", "typed")
	if got := els[1].StringProperty("value"); got != "typed" {
		t.Errorf("live value = %q", got)
	}
}

func TestElementFromPoint(t *testing.T) {
	d := mustParse(t)
	mustQuery(t, d, "body").SetRect(0, 0, 1000, 700)
	main := mustQuery(t, d, "main").SetRect(0, 0, 500, 500)
	btn := mustQuery(t, d, "#save").SetRect(10, 10, 100, 30)

	if got := d.ElementFromPoint(20, 20); got != dom.Node(btn) {
		t.Errorf("expected button, got %v", got)
	}
	if got := d.ElementFromPoint(300, 300); got != dom.Node(main) {
		t.Errorf("expected main, got %v", got)
	}
	btn.SetStyle("display", "none")
	if got := d.ElementFromPoint(20, 20); got != dom.Node(main) {
		t.Errorf("hidden button must not be hit, got %v", got)
	}
}

func TestOverlay_ShadowsPointQuery(t *testing.T) {
	d := mustParse(t)
	mustQuery(t, d, "body").SetRect(0, 0, 1000, 700)
	btn := mustQuery(t, d, "#save").SetRect(10, 10, 100, 30)

	ov := d.InspectorOverlay()
	if err := ov.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}
	box := ov.NewBox(dom.BoxHighlight)
	box.Place(btn.BoundingRect())
	box.Show()

	if got := d.ElementFromPoint(20, 20); got == dom.Node(btn) {
		t.Fatal("visible overlay should shadow the button")
	}
	if got := d.targetAt(20, 20); got != dom.Node(btn) {
		t.Errorf("input target should pass through the overlay, got %v", got)
	}

	ov.SetHidden(true)
	if got := d.ElementFromPoint(20, 20); got != dom.Node(btn) {
		t.Errorf("hidden overlay must not shadow, got %v", got)
	}
	ov.SetHidden(false)

	if n := len(ov.Boxes(dom.BoxHighlight)); n != 1 {
		t.Errorf("boxes = %d", n)
	}
	ov.Unmount()
	if ov.Mounted() {
		t.Error("still mounted")
	}
	if _, err := d.QueryOne("#" + dom.OverlayRootID); err == nil {
		t.Error("overlay root left in the document")
	}
}

func TestDispatch_CaptureSuppressesBubble(t *testing.T) {
	d := mustParse(t)
	var order []string
	removeCapture := d.AddListener(dom.Click, true, func(dom.Event) dom.Disposition {
		order = append(order, "capture")
		return dom.Suppress
	})
	d.AddListener(dom.Click, false, func(dom.Event) dom.Disposition {
		order = append(order, "page")
		return dom.Continue
	})

	if d.ClickAt(1, 1) != dom.Suppress {
		t.Error("expected suppression")
	}
	if len(order) != 1 || order[0] != "capture" {
		t.Errorf("order = %v", order)
	}

	removeCapture()
	removeCapture()
	if d.ListenerCount(dom.Click, true) != 0 {
		t.Error("capture listener not removed")
	}
	order = nil
	d.ClickAt(1, 1)
	if len(order) != 1 || order[0] != "page" {
		t.Errorf("order after removal = %v", order)
	}
}

func TestObjects(t *testing.T) {
	fn := NewFunc("Button", "function Button(props) {}").With("displayName", "Fancy")
	if fn.Name() != "Button" {
		t.Errorf("name = %q", fn.Name())
	}
	if v, _ := fn.Get("displayName"); v != "Fancy" {
		t.Errorf("displayName = %v", v)
	}
	arr := NewArray(1, 2, 3)
	if arr.Len() != 3 || arr.Index(1) != 2 {
		t.Errorf("array access broken")
	}
	obj := NewObject("b", 1, "a", 2)
	if keys := obj.Keys(); len(keys) != 2 || keys[0] != "b" {
		t.Errorf("keys = %v", keys)
	}
	if got := dom.Lookup(NewObject("x", NewObject("y", "z")), "x", "y"); got != "z" {
		t.Errorf("lookup = %v", got)
	}
}
