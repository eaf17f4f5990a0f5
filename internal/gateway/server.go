// Package gateway is the host side of a remote embedding: inspectors dial in
// over WebSocket, report their events and selections, and accept commands
// issued through a small HTTP API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// BridgePath is where inspectors connect.
const BridgePath = "/__vibetorch/bridge"

// Options configures a Server.
type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string // empty allows loopback origins only
	RateLimitRPM   int
	RateLimitBurst int
	Token          string // bearer token for /api routes; empty disables auth
	History        store.HistoryStore
	Logger         *slog.Logger
	// OnSelection observes every selection payload after it is recorded.
	OnSelection func(ClientInfo, protocol.Selection)
}

// Server accepts inspector connections and serves the HTTP API.
type Server struct {
	opts     Options
	logger   *slog.Logger
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	now      func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewServer creates a gateway server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		logger:  opts.Logger,
		limiter: NewRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.Logger),
		mux:     http.NewServeMux(),
		now:     time.Now,
		clients: make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.mux.HandleFunc(BridgePath, s.handleWebSocket)
	s.registerRoutes(s.mux)
	return s
}

// Handler returns the HTTP handler serving the bridge and the API.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.limiter.Run(ctx, 5*time.Minute)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("gateway listening", "addr", ln.Addr().String(), "bridge", BridgePath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.opts.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
		s.logger.Warn("gateway: rejected origin", "origin", origin)
		return false
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.logger.Warn("gateway: rejected origin", "origin", origin)
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	origin := r.Header.Get("Origin")
	c := newClient(conn, s, origin, r.RemoteAddr)
	target := origin
	if target == "" {
		target = bridge.AnyOrigin
	}
	c.bridge = bridge.New(c, target, bridge.WithLogger(s.logger))
	s.attach(c)

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("inspector connected", "client", c.id, "origin", origin)

	c.Run(r.Context())

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.bridge.Close()
	s.limiter.Forget(c.id)
	s.logger.Info("inspector disconnected", "client", c.id)
}

// Clients lists connected inspectors, oldest first.
func (s *Server) Clients() []ClientInfo {
	s.mu.RLock()
	out := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Info())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// Client looks up a connected inspector.
func (s *Server) Client(id string) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

func (s *Server) closeClients() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.Close()
	}
}
