package gateway

import (
	"context"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

type pong struct {
	Pong      bool  `json:"pong"`
	Timestamp int64 `json:"timestamp"`
}

// attach subscribes the gateway to c's inspector events.
func (s *Server) attach(c *Client) {
	b := c.bridge
	b.On(protocol.EventInspectorStarted, func(bridge.Event) {
		c.mu.Lock()
		c.active = true
		c.mu.Unlock()
	})
	b.On(protocol.EventInspectorStopped, func(bridge.Event) {
		c.mu.Lock()
		c.active = false
		c.pinned = 0
		c.mu.Unlock()
	})
	b.On(protocol.EventSelected, func(bridge.Event) {
		c.mu.Lock()
		c.pinned++
		c.mu.Unlock()
	})
	b.On(protocol.EventUnselected, func(bridge.Event) {
		c.mu.Lock()
		if c.pinned > 0 {
			c.pinned--
		}
		c.mu.Unlock()
	})
	b.On(protocol.EventSelection, func(ev bridge.Event) {
		var sel protocol.Selection
		if err := ev.Decode(&sel); err != nil {
			s.logger.Warn("gateway: malformed selection", "client", c.id, "error", err)
			return
		}
		s.recordSelection(c, sel)
	})
	b.On(protocol.RequestPing, func(ev bridge.Event) {
		if err := b.Respond(ev, pong{Pong: true, Timestamp: s.now().UnixMilli()}, nil); err != nil {
			s.logger.Debug("gateway: ping reply failed", "client", c.id, "error", err)
		}
	})
}

func (s *Server) recordSelection(c *Client, sel protocol.Selection) {
	var id string
	if h := s.opts.History; h != nil {
		ctx := store.WithSource(context.Background(), "gateway:"+c.id)
		var err error
		if id, err = h.Save(ctx, sel); err != nil {
			s.logger.Warn("gateway: history save failed", "client", c.id, "error", err)
		}
	}

	c.mu.Lock()
	c.url = sel.Context.URL
	c.lastSelection = id
	c.mu.Unlock()

	s.logger.Info("selection received", "client", c.id, "url", sel.Context.URL, "elements", len(sel.Elements), "id", id)
	if fn := s.opts.OnSelection; fn != nil {
		fn(c.Info(), sel)
	}
}
