// Package analyzer turns a rendered element into a structured description:
// geometry, attributes, locators, semantic hints, a style snapshot and the
// owning component when the page exposes one.
package analyzer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/internal/fiber"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// TextPreviewLimit caps ElementInfo.Text.
const TextPreviewLimit = 100

const inputValuePrefix = 50

// Analyzer describes elements. It holds no per-element state.
type Analyzer struct {
	resolver *fiber.Resolver
	logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithResolver replaces the component resolver.
func WithResolver(r *fiber.Resolver) Option {
	return func(a *Analyzer) { a.resolver = r }
}

// WithLogger sets the logger used for degraded analyses.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer with the default resolver.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{resolver: fiber.NewResolver(), logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze reads the current state of node. Layout and styles are read at
// call time, so calling it again after a layout change yields fresh values.
// It never panics; a failing sub-step leaves only its own fields empty.
func (a *Analyzer) Analyze(node dom.Node) (info protocol.ElementInfo) {
	if node == nil {
		return info
	}
	a.step("identity", func() {
		info.TagName = node.TagName()
		info.ID = node.ID()
		info.ClassName = node.ClassName()
	})
	a.step("rect", func() { info.Rect = node.BoundingRect() })
	a.step("attributes", func() { info.Attributes = attributes(node) })
	a.step("text", func() { info.Text = TextPreview(node) })
	a.step("innerText", func() {
		inner := node.InnerText()
		if inner == "" {
			inner = node.TextContent()
		}
		info.InnerText = inner
	})
	a.step("source", func() {
		if src, ok := node.Attribute(dom.SourceAttribute); ok && src != "" {
			info.DataSource = src
		}
	})
	a.step("xpath", func() { info.XPath = XPath(node) })
	a.step("selector", func() { info.Selector = Selector(node) })
	a.step("path", func() { info.Path = Path(node) })
	a.step("semantic", func() { info.Semantic = semantic(node) })
	a.step("styles", func() { info.ComputedStyles = computedStyles(node) })
	a.step("structural", func() { info.Structural = structural(node) })
	info.React = a.component(node)
	return info
}

// step runs one sub-step of Analyze, absorbing a panic so the other
// fields are still filled.
func (a *Analyzer) step(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("analyzer: degraded description", "step", name, "panic", r)
		}
	}()
	fn()
}

// TextPreview is the trimmed, truncated text content reported as Text.
func TextPreview(node dom.Node) string {
	return truncate(strings.TrimSpace(node.TextContent()), TextPreviewLimit)
}

func (a *Analyzer) component(node dom.Node) (info *protocol.ComponentInfo) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("analyzer: component lookup failed", "panic", r)
			info = nil
		}
	}()
	return a.resolver.Identify(node)
}

func attributes(node dom.Node) map[string]string {
	attrs := node.Attributes()
	out := make(map[string]string, len(attrs))
	for _, at := range attrs {
		out[at.Name] = at.Value
	}
	return out
}

func semantic(node dom.Node) *protocol.SemanticInfo {
	info := &protocol.SemanticInfo{}
	ariaLabel, _ := node.Attribute("aria-label")
	title, _ := node.Attribute("title")
	placeholder := node.StringProperty("placeholder")
	info.AriaLabel = ariaLabel
	info.Role, _ = node.Attribute("role")
	info.TestID, _ = node.Attribute(dom.TestIDAttribute)
	info.Label = firstNonEmpty(ariaLabel, title, placeholder)

	switch node.TagName() {
	case "button", "a":
		info.ActionText = strings.TrimSpace(node.TextContent())
	case "input", "textarea":
		if value := node.StringProperty("value"); value != "" {
			typ := node.StringProperty("type")
			if typ == "" {
				typ = "text"
			}
			info.ActionText = fmt.Sprintf("%s: %s", typ, truncate(value, inputValuePrefix))
		} else if placeholder != "" {
			info.ActionText = "placeholder: " + placeholder
		}
	}
	return info
}

func computedStyles(node dom.Node) *protocol.ComputedStyles {
	return &protocol.ComputedStyles{
		Color:           node.ComputedStyle("color"),
		BackgroundColor: node.ComputedStyle("backgroundColor"),
		FontSize:        node.ComputedStyle("fontSize"),
		FontWeight:      node.ComputedStyle("fontWeight"),
		FontFamily:      node.ComputedStyle("fontFamily"),
		Display:         node.ComputedStyle("display"),
		Position:        node.ComputedStyle("position"),
		Visibility:      node.ComputedStyle("visibility"),
		Opacity:         node.ComputedStyle("opacity"),
		ZIndex:          node.ComputedStyle("zIndex"),
		Overflow:        node.ComputedStyle("overflow"),
	}
}

func structural(node dom.Node) *protocol.StructuralContext {
	ctx := &protocol.StructuralContext{Depth: Depth(node)}
	parent := node.Parent()
	if parent == nil {
		return ctx
	}
	ctx.Parent = protocol.ParentInfo{
		TagName:   parent.TagName(),
		ClassName: parent.ClassName(),
		Selector:  Selector(parent),
	}
	ctx.SiblingCount = len(parent.Children())
	return ctx
}

// Depth counts the ancestors of node.
func Depth(node dom.Node) int {
	depth := 0
	for p := node.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	return depth
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
