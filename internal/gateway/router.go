package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// commands maps API command names to inspector commands.
var commands = map[string]string{
	"start":  protocol.CommandStartInspector,
	"stop":   protocol.CommandStopInspector,
	"toggle": protocol.CommandToggleInspector,
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/clients", s.authMiddleware(s.handleClients))
	mux.HandleFunc("POST /api/clients/{id}/{command}", s.authMiddleware(s.handleCommand))
	mux.HandleFunc("GET /api/exports", s.authMiddleware(s.handleExports))
	mux.HandleFunc("GET /api/exports/{id}", s.authMiddleware(s.handleExport))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": n})
}

func (s *Server) handleClients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"clients": s.Clients()})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name, ok := commands[r.PathValue("command")]
	if !ok {
		writeError(w, http.StatusBadRequest, protocol.ErrInvalidRequest, "unknown command: "+r.PathValue("command"))
		return
	}
	c, ok := s.Client(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "client not found")
		return
	}
	if err := c.Command(name); err != nil {
		writeError(w, http.StatusServiceUnavailable, protocol.ErrUnavailable, err.Error())
		return
	}
	s.logger.Info("command sent", "client", c.id, "command", name)
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "command": name})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	h := s.opts.History
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, protocol.ErrUnavailable, "history store disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, protocol.ErrInvalidRequest, "invalid limit")
			return
		}
		limit = n
	}
	filter, err := store.CompileFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrInvalidRequest, err.Error())
		return
	}
	recs, err := h.List(r.Context(), limit, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": recs})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	h := s.opts.History
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, protocol.ErrUnavailable, "history store disabled")
		return
	}
	rec, err := h.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "export not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": protocol.NewErrorShape(code, message)})
}
