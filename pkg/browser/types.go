package browser

import "github.com/nextlevelbuilder/vibetorch/pkg/dom"

// StatusInfo describes the current browser state.
type StatusInfo struct {
	Running bool   `json:"running"`
	Pages   int    `json:"pages"`
	URL     string `json:"url,omitempty"` // first page URL
	Bin     string `json:"bin,omitempty"`
}

// inboundEvent is the payload the injected listener script passes to the
// input binding.
type inboundEvent struct {
	ID   int      `json:"id"`
	Kind string   `json:"kind"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	UI   bool     `json:"ui"`
	Key  keyEvent `json:"key"`
}

type keyEvent struct {
	Key    string `json:"key"`
	Code   string `json:"code"`
	Ctrl   bool   `json:"ctrl"`
	Meta   bool   `json:"meta"`
	Shift  bool   `json:"shift"`
	Alt    bool   `json:"alt"`
	Repeat bool   `json:"repeat"`
}

func (k keyEvent) dom() dom.KeyEvent {
	return dom.KeyEvent{
		Key: k.Key, Code: k.Code,
		Ctrl: k.Ctrl, Meta: k.Meta, Shift: k.Shift, Alt: k.Alt,
		Repeat: k.Repeat,
	}
}
