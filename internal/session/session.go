// Package session is the inspection state machine: it owns activation, hover
// tracking, pinned selections and their overlay boxes, and turns pointer and
// scroll input into analyzer calls and bridge notifications.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/vibetorch/internal/analyzer"
	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// DefaultThrottle is the minimum spacing of scroll-driven reposition passes.
const DefaultThrottle = 100 * time.Millisecond

// Callbacks receive fresh descriptions as the user interacts. Any may be nil.
type Callbacks struct {
	OnHover  func(protocol.ElementInfo)
	OnSelect func(protocol.ElementInfo)
	OnRemove func(protocol.ElementInfo)
}

// Session tracks one page. Its methods are safe for concurrent use; callbacks
// and bridge notifications run after internal state is updated and unlocked.
type Session struct {
	doc      dom.Document
	analyzer *analyzer.Analyzer
	bridge   *bridge.Bridge
	embedded bool
	logger   *slog.Logger

	mu          sync.Mutex
	throttle    time.Duration
	callbacks   Callbacks
	active      bool
	removers    []func()
	highlight   dom.Box
	label       dom.Box
	hovered     dom.Node
	pins        map[dom.Node]*pin
	order       []dom.Node
	counter     int
	scrollTimer *time.Timer
	scrollGen   uint64
	repositions int
}

// Option configures a Session.
type Option func(*Session)

func WithAnalyzer(a *analyzer.Analyzer) Option { return func(s *Session) { s.analyzer = a } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithThrottle sets the scroll throttle window.
func WithThrottle(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.throttle = d
		}
	}
}

// WithCallbacks installs the interaction callbacks.
func WithCallbacks(cb Callbacks) Option { return func(s *Session) { s.callbacks = cb } }

// Embedded makes the session report lifecycle and selection changes to the
// embedding parent through b.
func Embedded(b *bridge.Bridge) Option {
	return func(s *Session) {
		s.bridge = b
		s.embedded = b != nil
	}
}

// New creates an inactive session for doc.
func New(doc dom.Document, opts ...Option) *Session {
	s := &Session{
		doc:      doc,
		logger:   slog.Default(),
		throttle: DefaultThrottle,
		pins:     make(map[dom.Node]*pin),
	}
	for _, o := range opts {
		o(s)
	}
	if s.analyzer == nil {
		s.analyzer = analyzer.New(analyzer.WithLogger(s.logger))
	}
	return s
}

// Document returns the inspected page.
func (s *Session) Document() dom.Document { return s.doc }

// Analyzer returns the analyzer used for descriptions.
func (s *Session) Analyzer() *analyzer.Analyzer { return s.analyzer }

// SetCallbacks replaces the interaction callbacks without restarting.
func (s *Session) SetCallbacks(cb Callbacks) {
	s.mu.Lock()
	s.callbacks = cb
	s.mu.Unlock()
}

// SetThrottle changes the scroll throttle window for later scroll bursts.
func (s *Session) SetThrottle(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.throttle = d
	s.mu.Unlock()
}

// Active reports whether the session is tracking input.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start mounts the overlay and begins tracking input. It is a no-op while active.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	ov := s.doc.Overlay()
	if err := ov.Mount(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("mount overlay: %w", err)
	}
	s.highlight = ov.NewBox(dom.BoxHighlight)
	s.highlight.SetTone(dom.ToneHover)
	s.label = ov.NewBox(dom.BoxLabel)
	s.label.SetTone(dom.ToneHover)
	s.removers = []func(){
		s.doc.AddListener(dom.PointerMove, false, s.handlePointerMove),
		s.doc.AddListener(dom.Click, true, s.handleClick),
		s.doc.AddListener(dom.Scroll, true, s.handleScroll),
		s.doc.AddListener(dom.PointerLeave, false, s.handlePointerLeave),
	}
	s.active = true
	s.mu.Unlock()

	s.logger.Debug("session: started", "url", s.doc.Location())
	s.notifyParent(protocol.EventInspectorStarted, lifecycle{Timestamp: time.Now().UnixMilli()})
	return nil
}

// Stop clears every pin, detaches the listeners added by Start and unmounts
// the overlay. It is a no-op while inactive.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	removers := s.teardownLocked()
	s.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	s.logger.Debug("session: stopped", "url", s.doc.Location())
	s.notifyParent(protocol.EventInspectorStopped, lifecycle{Timestamp: time.Now().UnixMilli()})
}

// Toggle starts an inactive session and stops an active one.
func (s *Session) Toggle() error {
	if s.Active() {
		s.Stop()
		return nil
	}
	return s.Start()
}

// Cleanup forcibly clears hover, pins and the overlay for page teardown,
// whatever the current state. The parent is not notified.
func (s *Session) Cleanup() {
	s.mu.Lock()
	removers := s.teardownLocked()
	s.mu.Unlock()
	for _, remove := range removers {
		remove()
	}
}

// teardownLocked returns the listener removers for the caller to run
// after unlocking.
func (s *Session) teardownLocked() []func() {
	s.active = false
	s.cancelScrollLocked()
	s.clearHoverLocked()
	s.clearPinsLocked()
	s.doc.Overlay().Unmount()
	s.highlight, s.label = nil, nil
	removers := s.removers
	s.removers = nil
	return removers
}

type lifecycle struct {
	Timestamp int64 `json:"timestamp"`
}

func (s *Session) notifyParent(name string, data any) {
	if !s.embedded {
		return
	}
	if err := s.bridge.SendToParent(name, data); err != nil {
		s.logger.Debug("session: notify parent failed", "type", name, "error", err)
	}
}
