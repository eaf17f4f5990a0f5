package inspector

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/vibetorch/internal/bridge"
	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

type pong struct {
	Pong      bool  `json:"pong"`
	Timestamp int64 `json:"timestamp"`
}

func (in *Inspector) handlePing(ev bridge.Event) {
	in.respond(ev, pong{Pong: true, Timestamp: in.now().UnixMilli()}, nil)
}

func (in *Inspector) handleStatus(ev bridge.Event) {
	in.respond(ev, in.Status(), nil)
}

func (in *Inspector) handleExport(ev bridge.Event) {
	sel, err := in.Export(context.Background())
	switch {
	case err == nil:
		in.respond(ev, sel, nil)
	case errors.Is(err, ErrNothingSelected):
		in.respond(ev, nil, protocol.NewErrorShape(protocol.ErrFailedPrecondition, err.Error()))
	case errors.Is(err, export.ErrClipboardUnavailable):
		in.respond(ev, nil, protocol.NewErrorShape(protocol.ErrUnavailable, err.Error()))
	default:
		in.respond(ev, nil, protocol.NewErrorShape(protocol.ErrInternal, err.Error()))
	}
}

func (in *Inspector) respond(ev bridge.Event, data any, shape *protocol.ErrorShape) {
	if err := in.bridge.Respond(ev, data, shape); err != nil {
		in.logger.Debug("inspector: respond failed", "type", ev.Name, "error", err)
	}
}
