package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

const (
	hostOrigin = "http://localhost:3000"
	appOrigin  = "http://localhost:5173"
)

func frames() (*Window, *Window) {
	host := NewWindow(hostOrigin)
	return host, host.Embed(appOrigin)
}

func TestSendToParent_TopLevelIsNoop(t *testing.T) {
	top := NewWindow(appOrigin)
	b := New(top, AnyOrigin)
	if b.Embedded() {
		t.Fatal("top-level window reported as embedded")
	}
	if err := b.SendToParent("selected", map[string]string{"x": "y"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSendToParent_Envelope(t *testing.T) {
	host, app := frames()
	var got []Inbound
	host.Subscribe(func(in Inbound) { got = append(got, in) })

	now := time.UnixMilli(1700000000000)
	b := New(app, hostOrigin, WithClock(func() time.Time { return now }))
	if !b.Embedded() {
		t.Fatal("expected embedded")
	}
	if err := b.SendToParent("inspector-started", nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("delivered %d messages", len(got))
	}
	if got[0].Origin != appOrigin {
		t.Errorf("origin = %q", got[0].Origin)
	}
	var msg protocol.Message
	if err := json.Unmarshal(got[0].Data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "vibetorch:inspector-started" || msg.Timestamp != now.UnixMilli() {
		t.Errorf("envelope = %+v", msg)
	}
}

func TestSend_TargetOriginScopesDelivery(t *testing.T) {
	host, app := frames()
	n := 0
	host.Subscribe(func(Inbound) { n++ })

	New(app, "http://evil.example").SendToParent("selected", nil)
	if n != 0 {
		t.Fatal("message delivered to a window with a different origin")
	}
	New(app, hostOrigin).SendToParent("selected", nil)
	if n != 1 {
		t.Fatalf("delivered = %d", n)
	}
}

func TestReceive_DropsForeignOrigin(t *testing.T) {
	host, app := frames()
	b := New(app, hostOrigin)
	var names []string
	b.OnMessage(func(ev Event) { names = append(names, ev.Name) })

	msg, _ := protocol.NewMessage("start-inspector", nil, time.Now())
	raw, _ := json.Marshal(msg)

	evil := NewWindow("http://evil.example")
	evil.Proxy(app).PostMessage(raw, AnyOrigin)
	if len(names) != 0 {
		t.Fatalf("foreign-origin message dispatched: %v", names)
	}

	host.Proxy(app).PostMessage(raw, AnyOrigin)
	if len(names) != 1 || names[0] != "start-inspector" {
		t.Fatalf("names = %v", names)
	}
}

func TestReceive_IgnoresForeignTypesAndGarbage(t *testing.T) {
	host, app := frames()
	b := New(app, AnyOrigin)
	n := 0
	b.OnMessage(func(Event) { n++ })

	host.Proxy(app).PostMessage([]byte(`{"type":"webpackOk"}`), AnyOrigin)
	host.Proxy(app).PostMessage([]byte(`not json`), AnyOrigin)
	if n != 0 {
		t.Fatalf("dispatched %d foreign messages", n)
	}
}

func TestOn_TypedAndWildcard(t *testing.T) {
	host, app := frames()
	b := New(app, AnyOrigin)

	var typed, all []string
	unTyped := b.On("vibetorch:toggle-inspector", func(ev Event) { typed = append(typed, ev.Name) })
	b.On(AllMessages, func(ev Event) { all = append(all, ev.Name) })

	hostBridge := New(host, AnyOrigin)
	hostBridge.SendToChild(host.Proxy(app), "toggle-inspector", nil)
	hostBridge.SendToChild(host.Proxy(app), "stop-inspector", nil)

	if len(typed) != 1 || typed[0] != "toggle-inspector" {
		t.Errorf("typed = %v", typed)
	}
	if len(all) != 2 {
		t.Errorf("all = %v", all)
	}

	unTyped()
	unTyped()
	if c := b.HandlerCount("toggle-inspector"); c != 0 {
		t.Errorf("handler count after unsubscribe = %d", c)
	}
	hostBridge.SendToChild(host.Proxy(app), "toggle-inspector", nil)
	if len(typed) != 1 {
		t.Errorf("unsubscribed handler still called: %v", typed)
	}
}

func TestOn_HandlerPanicIsContained(t *testing.T) {
	host, app := frames()
	b := New(app, AnyOrigin)
	called := false
	b.On("selected", func(Event) { panic("boom") })
	b.On("selected", func(Event) { called = true })

	New(host, AnyOrigin).SendToChild(host.Proxy(app), "selected", nil)
	if !called {
		t.Error("second handler skipped after panic")
	}
}

func TestRequest_Response(t *testing.T) {
	host, app := frames()
	hostBridge := New(host, AnyOrigin)
	hostBridge.On("status", func(ev Event) {
		var req map[string]any
		ev.Decode(&req)
		hostBridge.Respond(ev, map[string]any{"echo": req["q"]}, nil)
	})

	b := New(app, hostOrigin)
	data, err := b.Request(context.Background(), "status", map[string]string{"q": "hi"}, time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil || out["echo"] != "hi" {
		t.Fatalf("response = %s (%v)", data, err)
	}
	if c := b.HandlerCount("status-response"); c != 0 {
		t.Errorf("leaked %d response handlers", c)
	}
}

func TestRequest_RemoteError(t *testing.T) {
	host, app := frames()
	hostBridge := New(host, AnyOrigin)
	hostBridge.On("export", func(ev Event) {
		hostBridge.Respond(ev, nil, protocol.NewErrorShape(protocol.ErrFailedPrecondition, "nothing pinned"))
	})

	_, err := New(app, AnyOrigin).Request(context.Background(), "export", nil, time.Second)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != protocol.ErrFailedPrecondition {
		t.Fatalf("err = %v", err)
	}
}

func TestRequest_TimeoutLeavesNoListener(t *testing.T) {
	host, app := frames()
	hostBridge := New(host, AnyOrigin)

	var mu sync.Mutex
	var seen []Event
	hostBridge.On("ping", func(ev Event) {
		mu.Lock()
		seen = append(seen, ev)
		stale := len(seen) == 2
		mu.Unlock()
		if stale {
			// Answer the second request with the first request's id.
			hostBridge.Respond(seen[0], "stale", nil)
		}
	})

	b := New(app, AnyOrigin)
	start := time.Now()
	_, err := b.Request(context.Background(), "ping", nil, 50*time.Millisecond)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if elapsed < 50*time.Millisecond || elapsed > time.Second {
		t.Errorf("timed out after %v", elapsed)
	}
	if !strings.Contains(err.Error(), "ping") {
		t.Errorf("error %q does not name the request", err)
	}
	if c := b.HandlerCount("ping-response"); c != 0 {
		t.Fatalf("leaked %d response handlers", c)
	}

	_, err = b.Request(context.Background(), "ping", nil, 50*time.Millisecond)
	if !errors.Is(err, ErrRequestTimeout) {
		t.Fatalf("second request accepted a stale response: %v", err)
	}
}

func TestRequest_ContextCancel(t *testing.T) {
	_, app := frames()
	b := New(app, AnyOrigin)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Request(ctx, "ping", nil, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequest_NonObjectData(t *testing.T) {
	_, app := frames()
	if _, err := New(app, AnyOrigin).Request(context.Background(), "ping", []int{1}, time.Second); err == nil {
		t.Fatal("expected error for array payload")
	}
}

func TestClose(t *testing.T) {
	host, app := frames()
	b := New(app, AnyOrigin)
	n := 0
	b.OnMessage(func(Event) { n++ })
	b.Close()
	b.Close()

	if app.Listeners() != 0 {
		t.Error("bridge still subscribed to its frame")
	}
	New(host, AnyOrigin).SendToChild(host.Proxy(app), "selected", nil)
	if n != 0 {
		t.Error("closed bridge dispatched a message")
	}
	if err := b.SendToParent("selected", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v", err)
	}
	if _, err := b.Request(context.Background(), "ping", nil, time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("request after close = %v", err)
	}
}

func TestPort_RequestOverWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		return r.Header.Get("Origin") == appOrigin
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg protocol.Message
			json.Unmarshal(data, &msg)
			if msg.Type != protocol.Qualify("ping") {
				continue
			}
			var req struct {
				RequestID string `json:"requestId"`
			}
			json.Unmarshal(msg.Data, &req)
			reply, _ := protocol.NewMessage("ping-response", protocol.ResponseEnvelope{
				RequestID: req.RequestID,
				Data:      json.RawMessage(`{"pong":true}`),
			}, time.Now())
			out, _ := json.Marshal(reply)
			conn.WriteMessage(websocket.TextMessage, out)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port, err := DialParent(ctx, wsURL, appOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer port.Close()
	if port.RemoteOrigin() != srv.URL {
		t.Errorf("remote origin = %q, want %q", port.RemoteOrigin(), srv.URL)
	}

	b := New(port, port.RemoteOrigin())
	data, err := b.Request(ctx, "ping", nil, 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if string(data) != `{"pong":true}` {
		t.Errorf("data = %s", data)
	}
}

func TestDialParent_RejectsBadScheme(t *testing.T) {
	if _, err := DialParent(context.Background(), "http://localhost:1", appOrigin); err == nil {
		t.Fatal("expected scheme error")
	}
}
