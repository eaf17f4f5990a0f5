package session

import (
	"fmt"
	"strconv"

	"github.com/nextlevelbuilder/vibetorch/internal/analyzer"
	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// pin is one pinned selection. It owns exactly one box and one label.
type pin struct {
	index int // badge number
	box   dom.Box
	label dom.Box
}

func (p *pin) place(r dom.Rect) {
	p.box.Place(r)
	p.label.Place(dom.NewRect(r.Left, r.Top-pinLabelOffset, labelWidth, labelHeight))
}

func (p *pin) setTone(t dom.Tone) {
	p.box.SetTone(t)
	p.label.SetTone(t)
}

func (p *pin) remove() {
	p.box.Remove()
	p.label.Remove()
}

func (s *Session) pinLocked(node dom.Node) func() {
	ov := s.doc.Overlay()
	s.counter++
	info := s.analyzer.Analyze(node)

	p := &pin{
		index: s.counter,
		box:   ov.NewBox(dom.BoxPin),
		label: ov.NewBox(dom.BoxPinLabel),
	}
	p.box.SetText(strconv.Itoa(p.index))
	p.label.SetText(fmt.Sprintf("#%d - %s", p.index, Label(info)))
	p.setTone(dom.TonePinned)
	p.place(node.BoundingRect())
	p.box.Show()
	p.label.Show()

	s.pins[node] = p
	s.order = append(s.order, node)

	onSelect := s.callbacks.OnSelect
	return func() {
		if onSelect != nil {
			onSelect(info)
		}
		s.notifyParent(protocol.EventSelected, info)
	}
}

func (s *Session) unpinLocked(node dom.Node) func() {
	s.dropLocked(node)
	info := s.analyzer.Analyze(node)
	onRemove := s.callbacks.OnRemove
	return func() {
		if onRemove != nil {
			onRemove(info)
		}
		s.notifyParent(protocol.EventUnselected, info)
	}
}

// dropLocked removes node's pin and its overlay pair together.
func (s *Session) dropLocked(node dom.Node) bool {
	p, ok := s.pins[node]
	if !ok {
		return false
	}
	p.remove()
	delete(s.pins, node)
	for i, n := range s.order {
		if n == node {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Session) clearPinsLocked() {
	for _, node := range s.order {
		s.pins[node].remove()
	}
	s.pins = make(map[dom.Node]*pin)
	s.order = nil
	s.counter = 0
}

// ClearAll removes every pin and resets badge numbering. Callbacks are not
// invoked.
func (s *Session) ClearAll() {
	s.mu.Lock()
	s.clearPinsLocked()
	s.mu.Unlock()
}

// RemoveByDescription drops the pin whose node matches info by xpath or,
// when no pin matches by xpath, by selector and text together. It is meant
// for external lists that already removed the entry, so no callback or
// notification fires. It reports whether a pin was removed.
func (s *Session) RemoveByDescription(info protocol.ElementInfo) bool {
	// Node reads may be remote round trips; do them outside the lock.
	nodes := s.Pinned()
	target := findPin(nodes, func(n dom.Node) bool {
		return info.XPath != "" && analyzer.XPath(n) == info.XPath
	})
	if target == nil {
		target = findPin(nodes, func(n dom.Node) bool {
			return analyzer.Selector(n) == info.Selector && analyzer.TextPreview(n) == info.Text
		})
	}
	if target == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked(target)
}

func findPin(nodes []dom.Node, match func(dom.Node) bool) dom.Node {
	for _, n := range nodes {
		if match(n) {
			return n
		}
	}
	return nil
}

// Unpin removes node's pin as a click would, invoking callbacks.
func (s *Session) Unpin(node dom.Node) bool {
	s.mu.Lock()
	if _, ok := s.pins[node]; !ok {
		s.mu.Unlock()
		return false
	}
	emit := s.unpinLocked(node)
	s.mu.Unlock()
	emit()
	return true
}

// Pinned returns pinned nodes in creation order.
func (s *Session) Pinned() []dom.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dom.Node, len(s.order))
	copy(out, s.order)
	return out
}

// PinCount returns the number of pinned nodes.
func (s *Session) PinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Badge returns the badge number shown on node's pin, or 0.
func (s *Session) Badge(node dom.Node) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pins[node]; ok {
		return p.index
	}
	return 0
}

// Selections returns fresh descriptions of the pinned nodes in creation order.
func (s *Session) Selections() []protocol.ElementInfo {
	nodes := s.Pinned()
	out := make([]protocol.ElementInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, s.analyzer.Analyze(n))
	}
	return out
}
