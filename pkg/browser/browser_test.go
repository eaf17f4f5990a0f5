package browser

import (
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/nextlevelbuilder/vibetorch/internal/sanitize"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

func TestAttrPairs(t *testing.T) {
	got := attrPairs(gson.New([]any{
		[]any{"id", "save"},
		[]any{"class", "btn primary"},
		[]any{"broken"},
	}))
	want := []dom.Attr{{Name: "id", Value: "save"}, {Name: "class", Value: "btn primary"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attr %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRectFrom(t *testing.T) {
	r := rectFrom(gson.New(map[string]any{"x": 10, "y": 20, "width": 100, "height": 40}))
	if r != dom.NewRect(10, 20, 100, 40) {
		t.Errorf("rect = %+v", r)
	}
	if r := rectFrom(gson.New(nil)); r != (dom.Rect{}) {
		t.Errorf("nil rect = %+v", r)
	}
}

func TestConvertRemote(t *testing.T) {
	tests := []struct {
		name string
		in   *proto.RuntimeRemoteObject
		want any
	}{
		{"nil", nil, nil},
		{"string", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeString, Value: gson.New("Save")}, "Save"},
		{"number", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeNumber, Value: gson.New(42)}, float64(42)},
		{"boolean", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeBoolean, Value: gson.New(true)}, true},
		{"undefined", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeUndefined}, nil},
		{"null", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, Subtype: proto.RuntimeRemoteObjectSubtypeNull}, nil},
		{"symbol", &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeSymbol, Description: "Symbol(react.element)"}, "Symbol(react.element)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertRemote(nil, tt.in); got != tt.want {
				t.Errorf("convertRemote = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConvertRemote_Handles(t *testing.T) {
	arr := convertRemote(nil, &proto.RuntimeRemoteObject{
		Type: proto.RuntimeRemoteObjectTypeObject, Subtype: proto.RuntimeRemoteObjectSubtypeArray, ObjectID: "1",
	})
	if _, ok := arr.(dom.Array); !ok {
		t.Errorf("array converted to %T", arr)
	}
	obj := convertRemote(nil, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "2"})
	if _, ok := obj.(dom.Array); ok {
		t.Error("plain object converted to array")
	}
	if _, ok := obj.(dom.Object); !ok {
		t.Errorf("object converted to %T", obj)
	}
	fn := convertRemote(nil, &proto.RuntimeRemoteObject{
		Type: proto.RuntimeRemoteObjectTypeFunction, ObjectID: "3", Description: "function Button(props) { return null }",
	})
	if _, ok := fn.(dom.Func); !ok {
		t.Errorf("function converted to %T", fn)
	}
}

func TestFunctionName(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"function Button(props) { return null }", "Button"},
		{"async function loadData() {}", "loadData"},
		{"function* gen() {}", "gen"},
		{"class Card extends React.Component {}", "Card"},
		{"(props) => null", ""},
		{"function (a) {}", ""},
	}
	for _, tt := range tests {
		if got := functionName(tt.desc); got != tt.want {
			t.Errorf("functionName(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestListenerScript(t *testing.T) {
	js := listenerScript("__probe")
	for _, want := range []string{
		`window["__probe"]`,
		"'pointermove'", "'click'", "'scroll'", "'pointerleave'", "'keydown'",
		dom.OverlayRootID, dom.InspectorRootID, dom.IgnoreAttribute,
	} {
		if !strings.Contains(js, want) {
			t.Errorf("listener script missing %q", want)
		}
	}
}

func TestOverlayScript(t *testing.T) {
	for _, want := range []string{`"` + dom.OverlayZIndex + `"`, dom.BoxRoleAttribute, "pointerEvents: 'none'"} {
		if !strings.Contains(overlayScript, want) {
			t.Errorf("overlay script missing %q", want)
		}
	}
}

func TestInboundEvent(t *testing.T) {
	p := &Page{}
	ev, ok := p.event(inboundEvent{Kind: "scroll"})
	if !ok || ev.Kind != dom.Scroll || ev.Target != nil {
		t.Errorf("scroll event = %+v, %v", ev, ok)
	}
	if _, ok := p.event(inboundEvent{Kind: "wheel"}); ok {
		t.Error("unknown kind accepted")
	}
}

func TestDispatchOrder(t *testing.T) {
	p := &Page{}
	var order []string
	p.listeners = []*listener{
		{kind: dom.KeyDown, fn: func(dom.Event) dom.Disposition { order = append(order, "bubble"); return dom.Continue }},
		{kind: dom.KeyDown, capture: true, fn: func(dom.Event) dom.Disposition { order = append(order, "capture"); return dom.Continue }},
		{kind: dom.Click, capture: true, fn: func(dom.Event) dom.Disposition { order = append(order, "click"); return dom.Suppress }},
	}
	p.dispatch(dom.Event{Kind: dom.KeyDown})
	if strings.Join(order, ",") != "capture,bubble" {
		t.Errorf("order = %v", order)
	}

	order = nil
	p.listeners = append([]*listener{{kind: dom.KeyDown, capture: true, fn: func(dom.Event) dom.Disposition {
		order = append(order, "stop")
		return dom.Suppress
	}}}, p.listeners...)
	p.dispatch(dom.Event{Kind: dom.KeyDown})
	if strings.Join(order, ",") != "stop" {
		t.Errorf("order after suppress = %v", order)
	}
}

// loaded returns an object whose properties are already known.
func loaded(o dom.Object, props map[string]*proto.RuntimeRemoteObject) {
	ro := o.(*remoteObject)
	ro.once.Do(func() {})
	ro.props = props
	for k := range props {
		ro.keys = append(ro.keys, k)
	}
}

func TestCanonicalObject_SameIdentitySamePointer(t *testing.T) {
	// Two remote handles of one page object share a page-side identity.
	identities := map[proto.RuntimeRemoteObjectID]int{"props-1": 1, "props-2": 1, "other": 2}
	p := &Page{
		objects: make(map[int]dom.Object),
		identify: func(id proto.RuntimeRemoteObjectID) (int, bool) {
			n, ok := identities[id]
			return n, ok
		},
	}

	a := convertRemote(p, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "props-1"})
	b := convertRemote(p, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "props-2"})
	c := convertRemote(p, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "other"})
	if a != b {
		t.Error("same page object produced two wrappers")
	}
	if a == c {
		t.Error("distinct page objects share a wrapper")
	}

	loaded(a.(dom.Object), map[string]*proto.RuntimeRemoteObject{
		"label": {Type: proto.RuntimeRemoteObjectTypeString, Value: gson.New("Save")},
		"self":  {Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "props-2"},
	})
	got := sanitize.Props(a)
	if got["label"] != "Save" || got["self"] != sanitize.Circular {
		t.Errorf("props = %#v", got)
	}

	unknown := convertRemote(p, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "gone"})
	if unknown == convertRemote(p, &proto.RuntimeRemoteObject{Type: proto.RuntimeRemoteObjectTypeObject, ObjectID: "gone"}) {
		t.Error("objects without an identity were cached")
	}
}
