package session

import (
	"time"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// Hover label geometry.
const (
	labelWidth     = 200
	labelHeight    = 24
	labelGap       = 40
	labelMinTop    = 10
	labelBelow     = 10
	pinLabelOffset = 30
)

func (s *Session) handlePointerMove(ev dom.Event) dom.Disposition {
	var emit func()
	s.mu.Lock()
	if s.active {
		emit = s.pointerMoveLocked(ev)
	}
	s.mu.Unlock()
	if emit != nil {
		emit()
	}
	return dom.Continue
}

func (s *Session) pointerMoveLocked(ev dom.Event) func() {
	if IsInspectorUI(ev.Target) {
		s.clearHoverLocked()
		return nil
	}
	node := HitTest(s.doc, ev.X, ev.Y)
	if node == nil || IsInspectorUI(node) || node == s.hovered {
		return nil
	}

	if prev, ok := s.pins[s.hovered]; ok {
		prev.setTone(dom.TonePinned)
	}
	s.hovered = node
	info := s.analyzer.Analyze(node)
	s.showHighlightLocked(node, info)
	if p, ok := s.pins[node]; ok {
		p.setTone(dom.ToneArmed)
	}

	if fn := s.callbacks.OnHover; fn != nil {
		return func() { fn(info) }
	}
	return nil
}

func (s *Session) showHighlightLocked(node dom.Node, info protocol.ElementInfo) {
	if s.highlight == nil || s.label == nil {
		return
	}
	rect := node.BoundingRect()
	s.highlight.Place(rect)
	s.highlight.Show()

	s.label.SetText(Label(info))
	s.label.Place(s.labelRect(rect))
	s.label.Show()
}

// labelRect places the hover label above the element, or below it when
// there is no room, keeping it inside the viewport horizontally.
func (s *Session) labelRect(r dom.Rect) dom.Rect {
	x := r.Left
	y := r.Top - labelGap
	if y < labelMinTop {
		y = r.Bottom + labelBelow
	}
	if vw, _ := s.doc.Viewport(); x+labelWidth > vw {
		x = vw - labelWidth
	}
	return dom.NewRect(x, y, labelWidth, labelHeight)
}

func (s *Session) handleClick(ev dom.Event) dom.Disposition {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return dom.Continue
	}
	if IsInspectorUI(ev.Target) {
		s.mu.Unlock()
		return dom.Continue
	}
	var emit func()
	if target := s.hovered; target != nil && !IsInspectorUI(target) {
		if _, pinned := s.pins[target]; pinned {
			emit = s.unpinLocked(target)
		} else {
			emit = s.pinLocked(target)
		}
	}
	s.mu.Unlock()
	if emit != nil {
		emit()
	}
	return dom.Suppress
}

func (s *Session) handleScroll(dom.Event) dom.Disposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.scrollTimer != nil {
		return dom.Continue
	}
	gen := s.scrollGen
	s.scrollTimer = time.AfterFunc(s.throttle, func() { s.reposition(gen) })
	return dom.Continue
}

func (s *Session) handlePointerLeave(dom.Event) dom.Disposition {
	s.mu.Lock()
	s.clearHoverLocked()
	s.mu.Unlock()
	return dom.Continue
}

// reposition moves every pin to its node's current geometry.
func (s *Session) reposition(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.scrollGen {
		return
	}
	s.scrollTimer = nil
	if !s.active {
		return
	}
	for _, node := range s.order {
		s.pins[node].place(node.BoundingRect())
	}
	s.repositions++
}

// Repositions returns how many scroll-driven reposition passes have run.
func (s *Session) Repositions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repositions
}

func (s *Session) cancelScrollLocked() {
	if s.scrollTimer != nil {
		s.scrollTimer.Stop()
		s.scrollTimer = nil
	}
	s.scrollGen++
}

func (s *Session) clearHoverLocked() {
	if p, ok := s.pins[s.hovered]; ok {
		p.setTone(dom.TonePinned)
	}
	s.hovered = nil
	if s.highlight != nil {
		s.highlight.Hide()
	}
	if s.label != nil {
		s.label.Hide()
	}
}

// Hovered returns the node under the pointer, or nil.
func (s *Session) Hovered() dom.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}
