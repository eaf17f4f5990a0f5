// Package config loads the vibetorch configuration: one JSON5 file with
// environment overrides, defaults for everything, and hot reload.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/titanous/json5"

	"github.com/nextlevelbuilder/vibetorch/internal/keys"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	defaultDir      = "~/.vibetorch"
	defaultFile     = "config.json5"
	envConfigPath   = "VIBETORCH_CONFIG"
	envDebug        = "DEBUG_VIBETORCH"
	defaultPort     = 7431
	defaultThrottle = 100
)

// Config is the root configuration.
type Config struct {
	Inspector InspectorConfig `json:"inspector"`
	Browser   BrowserConfig   `json:"browser"`
	Gateway   GatewayConfig   `json:"gateway"`
	Store     StoreConfig     `json:"store"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Debug     bool            `json:"debug,omitempty"`

	mu sync.RWMutex
}

// InspectorConfig controls the in-page inspector.
type InspectorConfig struct {
	Embedded           bool   `json:"embedded,omitempty"`
	TargetOrigin       string `json:"targetOrigin,omitempty"`
	ToggleKey          string `json:"toggleKey,omitempty"`
	SecondaryToggleKey string `json:"secondaryToggleKey,omitempty"`
	KeyboardShortcuts  *bool  `json:"keyboardShortcuts,omitempty"`
	ExportViaClipboard *bool  `json:"exportViaClipboard,omitempty"`
	ThrottleMs         int    `json:"throttleMs,omitempty"`
	RegisterGlobal     bool   `json:"registerGlobal,omitempty"`
}

// BrowserConfig controls the Chrome instance used by `inspect`.
type BrowserConfig struct {
	Headless bool   `json:"headless,omitempty"`
	Bin      string `json:"bin,omitempty"`
}

// GatewayConfig controls the host gateway.
type GatewayConfig struct {
	Host           string   `json:"host,omitempty"`
	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
	RateLimitRPM   int      `json:"rateLimitRpm,omitempty"`
	RateLimitBurst int      `json:"rateLimitBurst,omitempty"`
	Token          string   `json:"token,omitempty"` // bearer token for the HTTP API
}

// StoreConfig controls the export history database.
type StoreConfig struct {
	Path      string `json:"path,omitempty"`
	CacheSize int    `json:"cacheSize,omitempty"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"serviceName,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	return &Config{
		Inspector: InspectorConfig{
			TargetOrigin:       "*",
			ToggleKey:          keys.DefaultToggle(),
			SecondaryToggleKey: keys.DefaultSecondary,
			ThrottleMs:         defaultThrottle,
		},
		Gateway: GatewayConfig{
			Host:           "127.0.0.1",
			Port:           defaultPort,
			RateLimitRPM:   600,
			RateLimitBurst: 50,
		},
		Store: StoreConfig{
			Path:      filepath.Join(defaultDir, "history.db"),
			CacheSize: 128,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "vibetorch",
		},
	}
}

// DefaultPath returns $VIBETORCH_CONFIG or ~/.vibetorch/config.json5.
func DefaultPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return ExpandHome(p)
	}
	return ExpandHome(filepath.Join(defaultDir, defaultFile))
}

// Load reads path on top of the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON, creating the directory.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	data, err := json.MarshalIndent(cfg, "", "  ")
	cfg.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies VIBETORCH_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	envStr("VIBETORCH_TARGET_ORIGIN", &c.Inspector.TargetOrigin)
	envStr("VIBETORCH_TOGGLE_KEY", &c.Inspector.ToggleKey)
	envStr("VIBETORCH_BROWSER_BIN", &c.Browser.Bin)
	envStr("VIBETORCH_HOST", &c.Gateway.Host)
	envInt("VIBETORCH_PORT", &c.Gateway.Port)
	envStr("VIBETORCH_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("VIBETORCH_STORE_PATH", &c.Store.Path)
	envStr("VIBETORCH_OTEL_ENDPOINT", &c.Telemetry.Endpoint)
	if v := os.Getenv("VIBETORCH_ALLOWED_ORIGINS"); v != "" {
		c.Gateway.AllowedOrigins = splitList(v)
	}
	if c.Telemetry.Endpoint != "" && os.Getenv("VIBETORCH_OTEL_ENDPOINT") != "" {
		c.Telemetry.Enabled = true
	}
	if os.Getenv(envDebug) != "" {
		c.Debug = true
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if o := c.Inspector.TargetOrigin; o != "" && o != "*" {
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("%w: inspector.targetOrigin %q is not an origin", ErrInvalid, o)
		}
	}
	if _, err := keys.NewMap(c.Inspector.ToggleKey, c.Inspector.SecondaryToggleKey, true); err != nil {
		return fmt.Errorf("%w: inspector key binding: %v", ErrInvalid, err)
	}
	if c.Inspector.ThrottleMs < 0 {
		return fmt.Errorf("%w: inspector.throttleMs must not be negative", ErrInvalid)
	}
	if p := c.Gateway.Port; p < 0 || p > 65535 {
		return fmt.Errorf("%w: gateway.port %d out of range", ErrInvalid, p)
	}
	if c.Gateway.RateLimitRPM < 0 || c.Gateway.RateLimitBurst < 0 {
		return fmt.Errorf("%w: gateway rate limits must not be negative", ErrInvalid)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("%w: telemetry.protocol %q (want grpc or http)", ErrInvalid, c.Telemetry.Protocol)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("%w: telemetry.endpoint is required when telemetry is enabled", ErrInvalid)
	}
	return nil
}

// ReplaceFrom copies every section of src into c.
func (c *Config) ReplaceFrom(src *Config) {
	src.mu.RLock()
	ins, br, gw, st, tel, dbg := src.Inspector, src.Browser, src.Gateway, src.Store, src.Telemetry, src.Debug
	src.mu.RUnlock()

	c.mu.Lock()
	c.Inspector, c.Browser, c.Gateway, c.Store, c.Telemetry, c.Debug = ins, br, gw, st, tel, dbg
	c.mu.Unlock()
}

// KeyMap returns the parsed key bindings.
func (c *Config) KeyMap() (keys.Map, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return keys.NewMap(c.Inspector.ToggleKey, c.Inspector.SecondaryToggleKey, boolOr(c.Inspector.KeyboardShortcuts, true))
}

// CopyOnExport reports whether exports go to the clipboard.
func (c *Config) CopyOnExport() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return boolOr(c.Inspector.ExportViaClipboard, true)
}

// Throttle returns the scroll throttle window.
func (c *Config) Throttle() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Inspector.ThrottleMs <= 0 {
		return defaultThrottle * time.Millisecond
	}
	return time.Duration(c.Inspector.ThrottleMs) * time.Millisecond
}

// StorePath returns the expanded history database path.
func (c *Config) StorePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Store.Path)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
