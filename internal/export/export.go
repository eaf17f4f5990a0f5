// Package export turns pinned element descriptions into the selection
// payload handed to external tools.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/vibetorch/internal/sanitize"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// TextLimit caps the exported text preview, in characters.
const TextLimit = 100

// exportedAttributes is the attribute allow-list, in output order.
var exportedAttributes = []string{"class", "id", "role", "aria-label", "data-testid", "placeholder", "type"}

// Build assembles the export payload for elems, which must already be in pin
// creation order. Indices are 1-based.
func Build(doc dom.Document, elems []protocol.ElementInfo, now time.Time) protocol.Selection {
	_, span := otel.Tracer("vibetorch/export").Start(context.Background(), "export.build")
	span.SetAttributes(attribute.Int("export.count", len(elems)))
	defer span.End()

	sel := protocol.Selection{
		Type:      protocol.SelectionType,
		Elements:  make([]protocol.SelectedElement, 0, len(elems)),
		Timestamp: now.UnixMilli(),
	}
	if doc != nil {
		w, h := doc.Viewport()
		sel.Context = protocol.PageContext{
			URL:      doc.Location(),
			Title:    doc.Title(),
			Viewport: protocol.Viewport{Width: w, Height: h},
		}
	}
	for i, info := range elems {
		sel.Elements = append(sel.Elements, element(i+1, info))
	}
	return sel
}

func element(index int, info protocol.ElementInfo) protocol.SelectedElement {
	out := protocol.SelectedElement{
		Index:     index,
		TagName:   info.TagName,
		Selector:  info.Selector,
		Path:      info.Path,
		Text:      truncate(info.Text, TextLimit),
		InnerText: info.InnerText,
		Rect: protocol.ExportRect{
			Top:    info.Rect.Top,
			Left:   info.Rect.Left,
			Width:  info.Rect.Width,
			Height: info.Rect.Height,
			X:      info.Rect.X,
			Y:      info.Rect.Y,
		},
	}

	for _, name := range exportedAttributes {
		if v := info.Attributes[name]; v != "" {
			if out.Attributes == nil {
				out.Attributes = make(map[string]string)
			}
			out.Attributes[name] = v
		}
	}

	if cs := info.ComputedStyles; cs != nil {
		out.ComputedStyles = &protocol.ExportStyles{
			Color:           cs.Color,
			BackgroundColor: cs.BackgroundColor,
			FontSize:        cs.FontSize,
			FontFamily:      cs.FontFamily,
			FontWeight:      cs.FontWeight,
			Display:         cs.Display,
			Position:        cs.Position,
			Visibility:      cs.Visibility,
			Opacity:         cs.Opacity,
		}
	}

	if st := info.Structural; st != nil {
		p := &protocol.ExportParent{Tag: st.Parent.TagName, Depth: st.Depth}
		if classes := strings.Fields(st.Parent.ClassName); len(classes) > 0 {
			p.Class = classes[0]
		}
		out.Parent = p
	}

	if sem := info.Semantic; sem != nil && (sem.Role != "" || sem.AriaLabel != "" || sem.Label != "") {
		label := sem.AriaLabel
		if label == "" {
			label = sem.Label
		}
		out.Semantic = &protocol.ExportSemantic{Role: sem.Role, Label: label}
	}

	if r := info.React; r != nil {
		c := &protocol.ExportComponent{Component: r.ComponentName}
		if len(r.Props) > 0 {
			c.Props = sanitize.Props(r.Props)
		}
		if r.Source != nil {
			c.File = path.Base(r.Source.FileName)
			c.Line = r.Source.LineNumber
		}
		out.React = c
	}
	return out
}

// Marshal renders sel as indented JSON, the clipboard text format.
func Marshal(sel protocol.Selection) ([]byte, error) {
	b, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal selection: %w", err)
	}
	return b, nil
}

// Tags returns the distinct tag names in sel, in first-seen order.
func Tags(sel protocol.Selection) []string {
	seen := make(map[string]bool)
	var out []string
	for _, el := range sel.Elements {
		if el.TagName != "" && !seen[el.TagName] {
			seen[el.TagName] = true
			out = append(out, el.TagName)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
