package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

const page = `<!doctype html>
<html><head><title>Todo</title></head>
<body><main class="app"><ul>
  <li class="item">one</li>
  <li class="item">two</li>
</ul></main></body></html>`

// run executes the root command with args against an isolated config file.
func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cfgFile, debug = "", false
	t.Cleanup(func() { cfgFile, debug = "", false })

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json5")
	body := `{
  // test config
  store: { path: "` + filepath.ToSlash(filepath.Join(dir, "history.db")) + `" },
  gateway: { token: "super-secret-token" },
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.html")
	if err := os.WriteFile(file, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := writeConfig(t, dir)

	out, err := run(t, cfg, "analyze", file, "li.item")
	if err != nil {
		t.Fatal(err)
	}
	var infos []protocol.ElementInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(infos) != 2 || infos[0].Text != "one" || infos[1].TagName != "li" {
		t.Errorf("infos = %+v", infos)
	}

	out, err = run(t, cfg, "analyze", file, "li.item", "--export", "--format", "yaml", "--url", "http://localhost:3000/")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"type: ", "url: http://localhost:3000/", "index: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml export missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, cfg, "analyze", file, "table"); err == nil {
		t.Error("expected error when nothing matches")
	}
	if _, err := run(t, cfg, "analyze", file, "li", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	hist, err := sqlite.Open(filepath.Join(dir, "history.db"), 8)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, u := range []string{"http://a.test/", "http://b.test/"} {
		id, err := hist.Save(context.Background(), protocol.Selection{
			Type:     protocol.SelectionType,
			Context:  protocol.PageContext{URL: u},
			Elements: []protocol.SelectedElement{{Index: 1, TagName: "button"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	hist.Close()

	out, err := run(t, cfg, "history", "list", "--filter", `url.startsWith("http://b")`, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "http://b.test/") || strings.Contains(out, "http://a.test/") {
		t.Errorf("filtered list = %s", out)
	}

	out, err = run(t, cfg, "history", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, ids[0]) {
		t.Errorf("table = %s", out)
	}

	out, err = run(t, cfg, "history", "show", ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tagName": "button"`) {
		t.Errorf("show = %s", out)
	}

	if _, err := run(t, cfg, "history", "delete", ids[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "history", "show", ids[0]); err == nil {
		t.Error("expected error for deleted export")
	}

	out, err = run(t, cfg, "history", "prune", "--keep", "0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Pruned 1") {
		t.Errorf("prune = %s", out)
	}
	if _, err := run(t, cfg, "history", "list", "--filter", "count >"); err == nil {
		t.Error("expected error for invalid filter")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	out, err := run(t, cfg, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "super-secret-token") {
		t.Errorf("token not redacted:\n%s", out)
	}
	if !strings.Contains(out, `"token": "supe****oken"`) {
		t.Errorf("masked token missing:\n%s", out)
	}
}

func TestConfigInitDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json5")
	if _, err := run(t, path, "config", "init", "--defaults"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, path, "config", "validate"); err != nil {
		t.Fatalf("written config invalid: %v", err)
	}
	if _, err := run(t, path, "config", "init", "--defaults"); err == nil {
		t.Error("expected error when file exists without --force")
	}
}

func TestRedactMap(t *testing.T) {
	m := map[string]any{
		"gateway":   map[string]any{"token": "short", "host": "127.0.0.1"},
		"telemetry": map[string]any{"headers": map[string]any{"authorization": "Bearer abcdefghijkl"}},
	}
	redactMap(m)
	gw := m["gateway"].(map[string]any)
	if gw["token"] != "****" || gw["host"] != "127.0.0.1" {
		t.Errorf("gateway = %v", gw)
	}
	h := m["telemetry"].(map[string]any)["headers"].(map[string]any)
	if h["authorization"] != "Bear****ijkl" {
		t.Errorf("headers = %v", h)
	}
}

func TestPageOrigin(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://localhost:3000/app?x=1", "http://localhost:3000"},
		{"https://example.com", "https://example.com"},
		{"file.html", ""},
		{"::bad", ""},
	}
	for _, tt := range tests {
		if got := pageOrigin(tt.in); got != tt.want {
			t.Errorf("pageOrigin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidPort(t *testing.T) {
	for _, s := range []string{"1", "7431", "65535"} {
		if err := validPort(s); err != nil {
			t.Errorf("validPort(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"0", "65536", "http"} {
		if err := validPort(s); err == nil {
			t.Errorf("validPort(%q) accepted", s)
		}
	}
}

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := newReporter(&buf, false)
	cb := r.callbacks()
	if cb.OnHover != nil {
		t.Error("hover callback set when hover output is off")
	}
	cb.OnSelect(protocol.ElementInfo{TagName: "button", ID: "save", Selector: "#save"})
	r.exported(protocol.Selection{Context: protocol.PageContext{URL: "http://x.test/"}, Elements: make([]protocol.SelectedElement, 2)})
	out := buf.String()
	for _, want := range []string{"pin", "<button#save>", "#save", "2 element(s) from http://x.test/"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if newReporter(&buf, true).callbacks().OnHover == nil {
		t.Error("hover callback missing")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "none.json5"), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "vibetorch "+Version) {
		t.Errorf("version = %q", out)
	}
}
