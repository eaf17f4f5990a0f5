// Package inspector embeds an inspection session into a page: it owns the
// key bindings, answers commands and requests from an embedding parent, and
// runs the export flow.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/internal/keys"
	"github.com/nextlevelbuilder/vibetorch/internal/session"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// ErrNothingSelected is returned by Export when no element is pinned.
var ErrNothingSelected = errors.New("no elements selected")

// Recorder persists completed exports and returns the record id.
type Recorder interface {
	Save(ctx context.Context, sel protocol.Selection) (string, error)
}

// Status is the reply to a status request.
type Status struct {
	Active   bool   `json:"active"`
	Pinned   int    `json:"pinned"`
	URL      string `json:"url"`
	Embedded bool   `json:"embedded"`
}

// Inspector wires a session to its page, keyboard and parent frame.
type Inspector struct {
	sess     *session.Session
	bridge   *bridge.Bridge
	history  Recorder
	clip     *export.Clipboard
	logger   *slog.Logger
	now      func() time.Time
	register bool
	onExport func(protocol.Selection)

	mu            sync.Mutex
	keymap        keys.Map
	copyOnExport  bool
	attached      bool
	detach        []func()
	unregisterSes func()
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithBridge connects the inspector to an embedding parent.
func WithBridge(b *bridge.Bridge) Option { return func(in *Inspector) { in.bridge = b } }

// WithKeys sets the key bindings.
func WithKeys(m keys.Map) Option { return func(in *Inspector) { in.keymap = m } }

// WithClipboard sets the clipboard used on export and whether exports are
// copied at all.
func WithClipboard(c *export.Clipboard, enabled bool) Option {
	return func(in *Inspector) {
		in.clip = c
		in.copyOnExport = enabled
	}
}

// WithHistory records every export.
func WithHistory(r Recorder) Option { return func(in *Inspector) { in.history = r } }

// WithExportHook is called with every successful export.
func WithExportHook(fn func(protocol.Selection)) Option {
	return func(in *Inspector) { in.onExport = fn }
}

// RegisterGlobal exposes the session through session.Current while attached.
func RegisterGlobal() Option { return func(in *Inspector) { in.register = true } }

func WithLogger(l *slog.Logger) Option { return func(in *Inspector) { in.logger = l } }

func WithClock(now func() time.Time) Option { return func(in *Inspector) { in.now = now } }

// New creates an inspector around sess. Call Attach to start listening.
func New(sess *session.Session, opts ...Option) *Inspector {
	km, _ := keys.NewMap("", "", true)
	in := &Inspector{
		sess:         sess,
		logger:       slog.Default(),
		now:          time.Now,
		keymap:       km,
		copyOnExport: true,
	}
	for _, o := range opts {
		o(in)
	}
	if in.clip == nil {
		in.clip = export.NewClipboard(export.WithClipboardLogger(in.logger))
	}
	return in
}

// Session returns the underlying session.
func (in *Inspector) Session() *session.Session { return in.sess }

// SetKeys replaces the key bindings.
func (in *Inspector) SetKeys(m keys.Map) {
	in.mu.Lock()
	in.keymap = m
	in.mu.Unlock()
}

// SetCopyOnExport toggles copying exports to the clipboard.
func (in *Inspector) SetCopyOnExport(enabled bool) {
	in.mu.Lock()
	in.copyOnExport = enabled
	in.mu.Unlock()
}

func (in *Inspector) embedded() bool {
	return in.bridge != nil && in.bridge.Embedded()
}

// Attach installs the key listener and, when embedded, the command and
// request handlers. It is a no-op when already attached.
func (in *Inspector) Attach() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.attached {
		return
	}
	in.attached = true
	doc := in.sess.Document()
	in.detach = append(in.detach, doc.AddListener(dom.KeyDown, true, in.handleKey))

	if in.embedded() {
		b := in.bridge
		in.detach = append(in.detach,
			b.On(protocol.CommandStartInspector, in.command(in.sess.Start)),
			b.On(protocol.CommandStopInspector, in.command(func() error { in.sess.Stop(); return nil })),
			b.On(protocol.CommandToggleInspector, in.command(in.sess.Toggle)),
			b.On(protocol.RequestPing, in.handlePing),
			b.On(protocol.RequestStatus, in.handleStatus),
			b.On(protocol.RequestExport, in.handleExport),
		)
	}
	if in.register {
		in.unregisterSes = session.Register(in.sess)
	}
	in.logger.Debug("inspector: attached", "url", doc.Location(), "embedded", in.embedded())
}

// Close tears the session down and removes everything Attach installed.
func (in *Inspector) Close() {
	in.mu.Lock()
	detach := in.detach
	unregister := in.unregisterSes
	in.detach, in.unregisterSes = nil, nil
	in.attached = false
	in.mu.Unlock()

	in.sess.Cleanup()
	for _, fn := range detach {
		fn()
	}
	if unregister != nil {
		unregister()
	}
}

// PageGone clears every overlay and selection after the page navigated away
// or was closed.
func (in *Inspector) PageGone() {
	in.sess.Cleanup()
}

func (in *Inspector) handleKey(ev dom.Event) dom.Disposition {
	in.mu.Lock()
	km := in.keymap
	in.mu.Unlock()

	action := km.Resolve(ev.Key, in.sess.Active(), in.sess.PinCount())
	switch action {
	case keys.None:
		return dom.Continue
	case keys.Toggle:
		if err := in.sess.Toggle(); err != nil {
			in.logger.Warn("inspector: toggle failed", "error", err)
		}
	case keys.Stop:
		// Escape still reaches page handlers such as open dialogs.
		in.sess.Stop()
		return dom.Continue
	case keys.Export:
		if _, err := in.Export(context.Background()); err != nil {
			in.logger.Warn("inspector: export failed", "error", err)
		}
	}
	return dom.Suppress
}

func (in *Inspector) command(fn func() error) bridge.Handler {
	return func(ev bridge.Event) {
		if err := fn(); err != nil {
			in.logger.Warn("inspector: command failed", "command", ev.Name, "error", err)
		}
	}
}

// Export builds the selection payload, copies it when enabled, reports it to
// the parent and the history, then clears the selection and stops.
func (in *Inspector) Export(ctx context.Context) (protocol.Selection, error) {
	elems := in.sess.Selections()
	if len(elems) == 0 {
		return protocol.Selection{}, ErrNothingSelected
	}
	sel := export.Build(in.sess.Document(), elems, in.now())

	in.mu.Lock()
	copyOn := in.copyOnExport
	in.mu.Unlock()
	if copyOn {
		text, err := export.Marshal(sel)
		if err != nil {
			return protocol.Selection{}, err
		}
		if err := in.clip.Write(string(text)); err != nil {
			return protocol.Selection{}, fmt.Errorf("copy selection: %w", err)
		}
	}

	if in.bridge != nil {
		if err := in.bridge.SendToParent(protocol.EventSelection, sel); err != nil {
			in.logger.Debug("inspector: selection not delivered", "error", err)
		}
	}
	if in.history != nil {
		if id, err := in.history.Save(ctx, sel); err != nil {
			in.logger.Warn("inspector: history save failed", "error", err)
		} else {
			in.logger.Debug("inspector: export recorded", "id", id)
		}
	}
	if in.onExport != nil {
		in.onExport(sel)
	}
	in.logger.Info("inspector: exported", "elements", len(sel.Elements), "url", sel.Context.URL)

	in.sess.ClearAll()
	in.sess.Stop()
	return sel, nil
}

// Status reports the session state.
func (in *Inspector) Status() Status {
	return Status{
		Active:   in.sess.Active(),
		Pinned:   in.sess.PinCount(),
		URL:      in.sess.Document().Location(),
		Embedded: in.embedded(),
	}
}
