// Package browser drives a live Chrome page over CDP with rod and exposes it
// through the dom interfaces, so the inspector runs against a real page the
// same way it runs against the in-memory document.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNotRunning is returned when no browser has been started.
var ErrNotRunning = errors.New("browser not running")

// Manager handles the Chrome browser lifecycle and inspected pages.
type Manager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	pages    map[proto.TargetTargetID]*Page
	headless bool
	bin      string
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeadless sets headless mode (default false).
func WithHeadless(h bool) Option {
	return func(m *Manager) { m.headless = h }
}

// WithBin uses a specific Chrome binary instead of the auto-detected one.
func WithBin(path string) Option {
	return func(m *Manager) { m.bin = path }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager with options.
func New(opts ...Option) *Manager {
	m := &Manager{
		pages:  make(map[proto.TargetTargetID]*Page),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// LookPath reports the Chrome binary the launcher would use.
func LookPath() (string, bool) {
	return launcher.LookPath()
}

// Start launches a Chrome browser.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return fmt.Errorf("browser already running")
	}

	l := launcher.New().
		Context(ctx).
		Headless(m.headless).
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")
	if m.bin != "" {
		l = l.Bin(m.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch Chrome: %w", err)
	}

	m.logger.Info("Chrome launched", "cdp", controlURL, "headless", m.headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to Chrome: %w", err)
	}

	m.browser = b
	return nil
}

// Stop tears down every page and closes the browser.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	b := m.browser
	pages := m.pages
	m.browser = nil
	m.pages = make(map[proto.TargetTargetID]*Page)
	m.mu.Unlock()

	if b == nil {
		return nil
	}
	for _, p := range pages {
		p.teardown("browser closed")
	}
	return b.Close()
}

// Close shuts down the browser if running.
func (m *Manager) Close() error {
	return m.Stop(context.Background())
}

// Status returns current browser status.
func (m *Manager) Status() *StatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return &StatusInfo{Running: false, Bin: m.bin}
	}

	pages, _ := m.browser.Pages()
	info := &StatusInfo{
		Running: true,
		Pages:   len(pages),
		Bin:     m.bin,
	}
	if len(pages) > 0 {
		if pageInfo, err := pages[0].Info(); err == nil {
			info.URL = pageInfo.URL
		}
	}
	return info
}

// Open creates a page with the inspector scripts installed and navigates it
// to url.
func (m *Manager) Open(ctx context.Context, url string) (*Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, ErrNotRunning
	}

	rp, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	p, err := newPage(rp, m.logger)
	if err != nil {
		rp.Close()
		return nil, err
	}
	p.onClose = func() { m.forget(rp.TargetID) }

	m.mu.Lock()
	m.pages[rp.TargetID] = p
	m.mu.Unlock()

	if err := rp.Context(ctx).Navigate(url); err != nil {
		p.Close()
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := rp.Context(ctx).WaitLoad(); err != nil {
		m.logger.Debug("browser: wait load failed", "url", url, "error", err)
	}
	_ = rp.WaitStable(300 * time.Millisecond)
	return p, nil
}

func (m *Manager) forget(id proto.TargetTargetID) {
	m.mu.Lock()
	delete(m.pages, id)
	m.mu.Unlock()
}
