package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextlevelbuilder/vibetorch/internal/session"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

var (
	hoverStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	pinStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	unpinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// reporter prints inspector activity as one line per event.
type reporter struct {
	mu    sync.Mutex
	w     io.Writer
	hover bool // print hover lines
}

func newReporter(w io.Writer, hover bool) *reporter {
	return &reporter{w: w, hover: hover}
}

func (r *reporter) line(style lipgloss.Style, tag, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s\n", style.Render(fmt.Sprintf("%-7s", tag)), text)
}

func (r *reporter) callbacks() session.Callbacks {
	cb := session.Callbacks{
		OnSelect: func(info protocol.ElementInfo) { r.line(pinStyle, "pin", describe(info)) },
		OnRemove: func(info protocol.ElementInfo) { r.line(unpinStyle, "unpin", describe(info)) },
	}
	if r.hover {
		cb.OnHover = func(info protocol.ElementInfo) { r.line(hoverStyle, "hover", describe(info)) }
	}
	return cb
}

func (r *reporter) exported(sel protocol.Selection) {
	r.line(okStyle, "export", fmt.Sprintf("%d element(s) from %s", len(sel.Elements), sel.Context.URL))
}

func (r *reporter) info(text string) { r.line(dimStyle, "info", text) }

func (r *reporter) warn(text string) { r.line(warnStyle, "warn", text) }

// describe renders the hover label plus the selector.
func describe(info protocol.ElementInfo) string {
	label := session.Label(info)
	if info.Selector == "" {
		return label
	}
	return label + " " + dimStyle.Render(info.Selector)
}
