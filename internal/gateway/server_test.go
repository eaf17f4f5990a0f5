package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

const appOrigin = "http://localhost:3000"

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, origin string) (*bridge.Port, *bridge.Bridge) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	port, err := bridge.DialParent(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+BridgePath, origin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	b := bridge.New(port, port.RemoteOrigin())
	t.Cleanup(func() {
		b.Close()
		port.Close()
	})
	return port, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func getJSON(t *testing.T, target string, v any) int {
	t.Helper()
	resp, err := http.Get(target)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return resp.StatusCode
}

func TestGateway_TracksInspectorEvents(t *testing.T) {
	hist, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"), 8)
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	received := make(chan protocol.Selection, 1)
	s, ts := newTestServer(t, Options{
		History:     hist,
		OnSelection: func(_ ClientInfo, sel protocol.Selection) { received <- sel },
	})
	_, child := dial(t, ts, appOrigin)

	waitFor(t, "client registration", func() bool { return len(s.Clients()) == 1 })

	if err := child.SendToParent(protocol.EventInspectorStarted, map[string]int64{"timestamp": 1}); err != nil {
		t.Fatal(err)
	}
	child.SendToParent(protocol.EventSelected, protocol.ElementInfo{TagName: "button"})
	child.SendToParent(protocol.EventSelected, protocol.ElementInfo{TagName: "a"})
	child.SendToParent(protocol.EventUnselected, protocol.ElementInfo{TagName: "a"})

	waitFor(t, "active with one pin", func() bool {
		info := s.Clients()[0]
		return info.Active && info.Pinned == 1
	})

	sel := protocol.Selection{
		Type:     protocol.SelectionType,
		Context:  protocol.PageContext{URL: appOrigin + "/cart", Title: "Cart"},
		Elements: []protocol.SelectedElement{{Index: 1, TagName: "button"}},
	}
	child.SendToParent(protocol.EventSelection, sel)

	select {
	case got := <-received:
		if got.Context.URL != sel.Context.URL {
			t.Errorf("url = %q", got.Context.URL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("selection not received")
	}

	info := s.Clients()[0]
	if info.Origin != appOrigin || info.URL != sel.Context.URL || info.LastSelection == "" {
		t.Errorf("client info = %+v", info)
	}

	var list struct {
		Exports []struct {
			ID     string   `json:"id"`
			Tags   []string `json:"tags"`
			Source string   `json:"source"`
		} `json:"exports"`
	}
	if code := getJSON(t, ts.URL+"/api/exports?filter="+url.QueryEscape(`"button" in tags`), &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Exports) != 1 || list.Exports[0].ID != info.LastSelection {
		t.Fatalf("exports = %+v", list.Exports)
	}
	if want := "gateway:" + info.ID; list.Exports[0].Source != want {
		t.Errorf("source = %q, want %q", list.Exports[0].Source, want)
	}

	var rec struct {
		ID      string             `json:"id"`
		Payload protocol.Selection `json:"payload"`
	}
	if code := getJSON(t, ts.URL+"/api/exports/"+info.LastSelection, &rec); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if rec.Payload.Context.Title != "Cart" {
		t.Errorf("payload = %+v", rec.Payload)
	}
	if code := getJSON(t, ts.URL+"/api/exports/missing", nil); code != http.StatusNotFound {
		t.Errorf("missing export status = %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/exports?filter=count+%2B", nil); code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d", code)
	}

	child.SendToParent(protocol.EventInspectorStopped, map[string]int64{"timestamp": 2})
	waitFor(t, "inactive", func() bool {
		info := s.Clients()[0]
		return !info.Active && info.Pinned == 0
	})
}

func TestGateway_CommandsReachInspector(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	_, child := dial(t, ts, appOrigin)
	waitFor(t, "client registration", func() bool { return len(s.Clients()) == 1 })
	id := s.Clients()[0].ID

	got := make(chan string, 4)
	for _, name := range []string{protocol.CommandStartInspector, protocol.CommandStopInspector, protocol.CommandToggleInspector} {
		child.On(name, func(ev bridge.Event) { got <- ev.Name })
	}

	tests := []struct {
		command string
		status  int
		want    string
	}{
		{"start", http.StatusAccepted, protocol.CommandStartInspector},
		{"toggle", http.StatusAccepted, protocol.CommandToggleInspector},
		{"stop", http.StatusAccepted, protocol.CommandStopInspector},
		{"explode", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/clients/"+id+"/"+tt.command, "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.want == "" {
				return
			}
			select {
			case name := <-got:
				if name != tt.want {
					t.Errorf("inspector got %q, want %q", name, tt.want)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("command not delivered")
			}
		})
	}

	resp, err := http.Post(ts.URL+"/api/clients/nope/start", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown client status = %d", resp.StatusCode)
	}
}

func TestGateway_AnswersPing(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	_, child := dial(t, ts, appOrigin)

	raw, err := child.Request(context.Background(), protocol.RequestPing, nil, 3*time.Second)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	var env protocol.ResponseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	var p pong
	if err := json.Unmarshal(env.Data, &p); err != nil || !p.Pong {
		t.Errorf("pong = %+v, err = %v", p, err)
	}
}

func TestGateway_DisconnectRemovesClient(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	port, _ := dial(t, ts, appOrigin)
	waitFor(t, "client registration", func() bool { return len(s.Clients()) == 1 })
	port.Close()
	waitFor(t, "client removal", func() bool { return len(s.Clients()) == 0 })

	var health struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if code := getJSON(t, ts.URL+"/health", &health); code != http.StatusOK || health.Status != "ok" || health.Clients != 0 {
		t.Errorf("health = %d %+v", code, health)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"loopback by default", nil, "http://localhost:5173", true},
		{"ipv4 loopback", nil, "http://127.0.0.1:3000", true},
		{"remote rejected by default", nil, "https://evil.example", false},
		{"allow-list match", []string{"https://app.example"}, "https://app.example", true},
		{"allow-list miss", []string{"https://app.example"}, "http://localhost:3000", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Options{AllowedOrigins: tt.allowed})
			r := httptest.NewRequest(http.MethodGet, BridgePath, nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := s.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, ts := newTestServer(t, Options{Token: "s3cret"})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is public", "/health", "", http.StatusOK},
		{"missing token", "/api/clients", "", http.StatusUnauthorized},
		{"wrong token", "/api/clients", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/api/clients", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestExports_HistoryDisabled(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	if code := getJSON(t, ts.URL+"/api/exports", nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", code)
	}
}
