// Package bridge is the typed message channel between an inspected page and
// the window or host that embeds it. Messages use the namespaced envelope from
// pkg/protocol; inbound traffic is filtered by origin before it is parsed.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// AnyOrigin accepts every origin and posts without restriction.
const AnyOrigin = "*"

// DefaultTimeout bounds Request when no timeout is given.
const DefaultTimeout = 5 * time.Second

// AllMessages subscribes a handler to every namespaced message.
const AllMessages = "*"

var (
	ErrRequestTimeout = errors.New("request timeout")
	ErrClosed         = errors.New("bridge closed")
)

// Endpoint is a window that accepts posted messages. Delivery is dropped
// silently when targetOrigin is neither AnyOrigin nor the receiver's origin.
type Endpoint interface {
	PostMessage(data []byte, targetOrigin string) error
}

// Inbound is a raw message event as the receiving window sees it.
type Inbound struct {
	Origin string
	Data   []byte
	Source Endpoint // the sender, for replies
}

// Source delivers inbound message events.
type Source interface {
	Subscribe(fn func(Inbound)) (cancel func())
}

// Frame is the browsing context a bridge runs in.
type Frame interface {
	Source
	// Parent returns the embedding window, or nil at top level.
	Parent() Endpoint
}

// Event is a decoded inbound message.
type Event struct {
	Name    string // without namespace
	Message protocol.Message
	Origin  string
	Source  Endpoint
}

// Decode unmarshals the message data into v.
func (e Event) Decode(v any) error {
	if len(e.Message.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Message.Data, v)
}

// Handler receives inbound events.
type Handler func(Event)

// RemoteError is a failure reported by the responder of a request.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string { return e.Code + ": " + e.Message }

type subscription struct {
	id uint64
	fn Handler
}

// Bridge sends and receives namespaced messages for one frame.
type Bridge struct {
	targetOrigin string
	frame        Frame
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time

	mu       sync.Mutex
	handlers map[string][]subscription
	nextID   uint64
	closed   bool
	cancel   func()
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option { return func(b *Bridge) { b.logger = l } }

func WithTracer(t trace.Tracer) Option { return func(b *Bridge) { b.tracer = t } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(b *Bridge) { b.now = now } }

// New attaches a bridge to frame. targetOrigin is AnyOrigin or an exact
// origin; an exact origin both scopes outbound posts and rejects inbound
// events from any other origin.
func New(frame Frame, targetOrigin string, opts ...Option) *Bridge {
	if targetOrigin == "" {
		targetOrigin = AnyOrigin
	}
	b := &Bridge{
		targetOrigin: targetOrigin,
		frame:        frame,
		logger:       slog.Default(),
		tracer:       otel.Tracer("github.com/nextlevelbuilder/vibetorch/internal/bridge"),
		now:          time.Now,
		handlers:     make(map[string][]subscription),
	}
	for _, o := range opts {
		o(b)
	}
	if frame != nil {
		b.cancel = frame.Subscribe(b.receive)
	}
	return b
}

// TargetOrigin returns the configured origin restriction.
func (b *Bridge) TargetOrigin() string { return b.targetOrigin }

// Embedded reports whether the frame has an embedding parent.
func (b *Bridge) Embedded() bool {
	return b.parent() != nil
}

func (b *Bridge) parent() Endpoint {
	if b.frame == nil {
		return nil
	}
	return b.frame.Parent()
}

// SendToParent posts name with data to the embedding window. It is a no-op
// at top level.
func (b *Bridge) SendToParent(name string, data any) error {
	parent := b.parent()
	if parent == nil {
		return nil
	}
	return b.post(parent, name, data)
}

// SendToChild posts name with data into a child frame.
func (b *Bridge) SendToChild(child Endpoint, name string, data any) error {
	if child == nil {
		return nil
	}
	return b.post(child, name, data)
}

func (b *Bridge) post(to Endpoint, name string, data any) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	msg, err := protocol.NewMessage(name, data, b.now())
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := to.PostMessage(raw, b.targetOrigin); err != nil {
		return fmt.Errorf("post %s: %w", name, err)
	}
	return nil
}

// OnMessage subscribes fn to every message. The returned function
// unsubscribes and is safe to call more than once.
func (b *Bridge) OnMessage(fn Handler) func() {
	return b.On(AllMessages, fn)
}

// On subscribes fn to one message name, with or without namespace.
func (b *Bridge) On(name string, fn Handler) func() {
	if bare, ok := protocol.Unqualify(name); ok {
		name = bare
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bridge) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

// HandlerCount returns the number of live subscriptions for name.
func (b *Bridge) HandlerCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[name])
}

func (b *Bridge) receive(in Inbound) {
	if b.targetOrigin != AnyOrigin && in.Origin != b.targetOrigin {
		b.logger.Debug("bridge: dropped message from foreign origin", "origin", in.Origin)
		return
	}
	typ, err := protocol.ParseFrameType(in.Data)
	if err != nil {
		return
	}
	name, ok := protocol.Unqualify(typ)
	if !ok {
		return
	}
	var msg protocol.Message
	if err := json.Unmarshal(in.Data, &msg); err != nil {
		b.logger.Debug("bridge: malformed message", "type", typ, "error", err)
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var fns []Handler
	for _, s := range b.handlers[name] {
		fns = append(fns, s.fn)
	}
	if name != AllMessages {
		for _, s := range b.handlers[AllMessages] {
			fns = append(fns, s.fn)
		}
	}
	b.mu.Unlock()

	ev := Event{Name: name, Message: msg, Origin: in.Origin, Source: in.Source}
	for _, fn := range fns {
		b.call(fn, ev)
	}
}

func (b *Bridge) call(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge: message handler panicked", "type", ev.Name, "panic", r)
		}
	}()
	fn(ev)
}

// Request posts name to the parent with a fresh requestId merged into data
// and waits for the matching "<name>-response". It fails with
// ErrRequestTimeout when no response arrives in time. The response
// subscription is removed on every path.
func (b *Bridge) Request(ctx context.Context, name string, data any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	ctx, span := b.tracer.Start(ctx, "bridge.request", trace.WithAttributes(
		attribute.String("vibetorch.message.type", name),
	))
	defer span.End()

	requestID := uuid.NewString()
	payload, err := withRequestID(data, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	replies := make(chan protocol.ResponseEnvelope, 1)
	unsubscribe := b.On(name+protocol.ResponseSuffix, func(ev Event) {
		var env protocol.ResponseEnvelope
		if err := ev.Decode(&env); err != nil || env.RequestID != requestID {
			return
		}
		select {
		case replies <- env:
		default:
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := b.SendToParent(name, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	select {
	case env := <-replies:
		if env.Error != nil {
			err := &RemoteError{Code: env.Error.Code, Message: env.Error.Message}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return env.Data, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s", ErrRequestTimeout, name)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
}

// Respond answers a request event through its sender.
func (b *Bridge) Respond(ev Event, data any, shape *protocol.ErrorShape) error {
	var req struct {
		RequestID string `json:"requestId"`
	}
	if err := ev.Decode(&req); err != nil || req.RequestID == "" {
		return fmt.Errorf("respond %s: missing requestId", ev.Name)
	}
	env := protocol.ResponseEnvelope{RequestID: req.RequestID, Error: shape}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("respond %s: %w", ev.Name, err)
		}
		env.Data = raw
	}
	if ev.Source == nil {
		return nil
	}
	return b.post(ev.Source, ev.Name+protocol.ResponseSuffix, env)
}

// Close detaches the bridge from its frame and drops every subscription.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.handlers = make(map[string][]subscription)
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// withRequestID merges requestId into the JSON object form of data.
func withRequestID(data any, id string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("request data must be a JSON object: %w", err)
			}
		}
	}
	idRaw, _ := json.Marshal(id)
	out["requestId"] = idRaw
	return out, nil
}
