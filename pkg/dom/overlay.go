package dom

// Markers that identify inspector-owned UI inside a page.
const (
	OverlayRootID    = "vibetorch-inspector-overlay"
	InspectorRootID  = "vibetorch-inspector-root"
	IgnoreAttribute  = "data-vibetorch-ignore"
	InspectorClass   = "vibetorch-inspector"
	OverlayZIndex    = "999999"
	SourceAttribute  = "data-source"
	TestIDAttribute  = "data-testid"
	BoxRoleAttribute = "data-vibetorch-box"
)

// BoxRole says what an overlay box is used for.
type BoxRole int

const (
	BoxHighlight BoxRole = iota
	BoxLabel
	BoxPin
	BoxPinLabel
)

func (r BoxRole) String() string {
	switch r {
	case BoxHighlight:
		return "highlight"
	case BoxLabel:
		return "label"
	case BoxPin:
		return "pin"
	case BoxPinLabel:
		return "pin-label"
	default:
		return "unknown"
	}
}

// Tone is the colour scheme of a box.
type Tone int

const (
	ToneHover Tone = iota
	TonePinned
	ToneArmed
)

// Color returns the CSS colour used for the tone.
func (t Tone) Color() string {
	switch t {
	case TonePinned:
		return "#22c55e"
	case ToneArmed:
		return "#fb923c"
	default:
		return "#3b82f6"
	}
}

// Overlay is the surface the inspector draws on. It lives inside the page
// under the reserved root id and sits above all page content.
type Overlay interface {
	Mount() error
	Unmount()
	Mounted() bool
	// SetHidden toggles the whole surface, used around point-based hit tests.
	SetHidden(hidden bool)
	Hidden() bool
	NewBox(role BoxRole) Box
}

// Box is one overlay element.
type Box interface {
	Role() BoxRole
	Place(r Rect)
	SetText(text string)
	SetTone(t Tone)
	Show()
	Hide()
	Remove()
}
