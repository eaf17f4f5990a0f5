package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/vibetorch/internal/render"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom/memdom"
)

const defaultListLimit = 20

var errHistoryDisabled = errors.New("export history is not configured")

func (s *Server) handleListSelections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError(errHistoryDisabled.Error()), nil
	}
	limit := req.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	filter, err := store.CompileFilter(req.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := s.history.List(ctx, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return result(req, recs)
}

func (s *Server) handleGetSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError(errHistoryDisabled.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.history.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("selection %q not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	sel, err := rec.Selection()
	if err != nil {
		return nil, err
	}
	return result(req, sel)
}

func (s *Server) handleAnalyzeHTML(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := memdom.ParseString(src, memdom.WithURL(req.GetString("url", "")))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse html: %v", err)), nil
	}
	infos, err := s.analyzer.Select(doc, selector)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(infos) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no element matches %q", selector)), nil
	}
	return result(req, infos)
}

// result renders v in the requested format as a text result.
func result(req mcp.CallToolRequest, v any) (*mcp.CallToolResult, error) {
	out, err := render.Marshal(req.GetString("format", render.YAML), v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
