package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxPortMessageSize = 512 * 1024
	portReadTimeout    = 60 * time.Second
	portPingInterval   = 30 * time.Second
	portWriteTimeout   = 10 * time.Second
)

var errSendBufferFull = errors.New("send buffer full")

// Port is a frame whose parent is a host reached over WebSocket. It stands in
// for window.parent when the inspector is embedded into a host process
// instead of a browser window.
type Port struct {
	conn         *websocket.Conn
	remoteOrigin string
	logger       *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	subs   map[uint64]func(Inbound)
	nextID uint64
}

// DialParent connects to a host bridge endpoint such as
// ws://127.0.0.1:7331/__vibetorch/bridge. origin is sent as the Origin header
// so the host can check it against its allow-list.
func DialParent(ctx context.Context, rawURL, origin string) (*Port, error) {
	remote, err := originOf(rawURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	p := &Port{
		conn:         conn,
		remoteOrigin: remote,
		logger:       slog.Default(),
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		subs:         make(map[uint64]func(Inbound)),
	}
	go p.writePump()
	go p.readPump()
	return p, nil
}

// originOf maps a ws:// or wss:// URL to the http origin it serves.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse bridge url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		return "http://" + u.Host, nil
	case "wss":
		return "https://" + u.Host, nil
	}
	return "", fmt.Errorf("bridge url %q: scheme must be ws or wss", rawURL)
}

// RemoteOrigin is the origin inbound messages are attributed to.
func (p *Port) RemoteOrigin() string { return p.remoteOrigin }

// Parent returns the port itself: the host is the embedding window.
func (p *Port) Parent() Endpoint { return p }

// Done is closed when the connection ends.
func (p *Port) Done() <-chan struct{} { return p.done }

// PostMessage queues data for the host.
func (p *Port) PostMessage(data []byte, targetOrigin string) error {
	if targetOrigin != AnyOrigin && targetOrigin != p.remoteOrigin {
		return nil
	}
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Subscribe registers fn for messages from the host.
func (p *Port) Subscribe(fn func(Inbound)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Close ends the connection.
func (p *Port) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *Port) readPump() {
	defer func() {
		p.Close()
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxPortMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(portReadTimeout))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(portReadTimeout))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn("bridge port read error", "origin", p.remoteOrigin, "error", err)
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(portReadTimeout))

		p.mu.Lock()
		fns := make([]func(Inbound), 0, len(p.subs))
		for _, fn := range p.subs {
			fns = append(fns, fn)
		}
		p.mu.Unlock()
		for _, fn := range fns {
			fn(Inbound{Origin: p.remoteOrigin, Data: data, Source: p})
		}
	}
}

func (p *Port) writePump() {
	ticker := time.NewTicker(portPingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case msg := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(portWriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				p.Close()
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(portWriteTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.Close()
				return
			}
		case <-p.done:
			p.conn.SetWriteDeadline(time.Now().Add(portWriteTimeout))
			p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

var _ Frame = (*Port)(nil)
