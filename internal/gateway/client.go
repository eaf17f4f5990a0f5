package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
)

// maxWSMessageSize is the maximum allowed WebSocket message size (512KB).
// Gorilla/websocket closes the connection with ErrReadLimit if exceeded.
const maxWSMessageSize = 512 * 1024

var errSendBufferFull = errors.New("client send buffer full")

// Client is one embedded inspector connected over WebSocket. It is the
// child window from the gateway's point of view: the gateway posts commands
// into it and receives its events.
type Client struct {
	id          string
	conn        *websocket.Conn
	server      *Server
	origin      string
	remoteAddr  string
	connectedAt time.Time
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once

	bridge *bridge.Bridge

	mu            sync.Mutex
	subs          map[uint64]func(bridge.Inbound)
	nextSub       uint64
	active        bool
	pinned        int
	url           string
	lastSelection string
	dropped       int
}

// ClientInfo is the public view of a connected inspector.
type ClientInfo struct {
	ID            string    `json:"id"`
	Origin        string    `json:"origin"`
	RemoteAddr    string    `json:"remoteAddr"`
	ConnectedAt   time.Time `json:"connectedAt"`
	Active        bool      `json:"active"`
	Pinned        int       `json:"pinned"`
	URL           string    `json:"url,omitempty"`
	LastSelection string    `json:"lastSelection,omitempty"`
	Dropped       int       `json:"dropped,omitempty"`
}

func newClient(conn *websocket.Conn, server *Server, origin, remoteAddr string) *Client {
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		server:      server,
		origin:      origin,
		remoteAddr:  remoteAddr,
		connectedAt: server.now(),
		send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		subs:        make(map[uint64]func(bridge.Inbound)),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Info snapshots the client state.
func (c *Client) Info() ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientInfo{
		ID:            c.id,
		Origin:        c.origin,
		RemoteAddr:    c.remoteAddr,
		ConnectedAt:   c.connectedAt,
		Active:        c.active,
		Pinned:        c.pinned,
		URL:           c.url,
		LastSelection: c.lastSelection,
		Dropped:       c.dropped,
	}
}

// Run starts the write pump and blocks in the read pump until the
// connection ends.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

// readPump reads frames from the WebSocket connection.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxWSMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if ctx.Err() != nil {
			return
		}
		if !c.server.limiter.Allow(c.id) {
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			continue
		}
		c.deliver(data)
	}
}

// writePump writes frames and pings to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	fns := make([]func(bridge.Inbound), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(bridge.Inbound{Origin: c.origin, Data: data, Source: c})
	}
}

// PostMessage queues data for the inspector.
func (c *Client) PostMessage(data []byte, targetOrigin string) error {
	if targetOrigin != bridge.AnyOrigin && targetOrigin != c.origin {
		return nil
	}
	select {
	case <-c.done:
		return bridge.ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.server.logger.Warn("client send buffer full, dropping message", "client", c.id)
		return errSendBufferFull
	}
}

// Subscribe registers fn for frames from the inspector.
func (c *Client) Subscribe(fn func(bridge.Inbound)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Parent returns nil: the gateway is the top-level window.
func (c *Client) Parent() bridge.Endpoint { return nil }

// Close shuts down the client connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Command posts an inspector command such as "start-inspector".
func (c *Client) Command(name string) error {
	return c.bridge.SendToChild(c, name, nil)
}

var _ bridge.Frame = (*Client)(nil)
