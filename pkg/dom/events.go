package dom

// EventKind identifies an input event type.
type EventKind int

const (
	PointerMove EventKind = iota
	Click
	Scroll
	PointerLeave
	KeyDown
)

func (k EventKind) String() string {
	switch k {
	case PointerMove:
		return "pointermove"
	case Click:
		return "click"
	case Scroll:
		return "scroll"
	case PointerLeave:
		return "pointerleave"
	case KeyDown:
		return "keydown"
	default:
		return "unknown"
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for k := PointerMove; k <= KeyDown; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// KeyEvent carries keyboard state for KeyDown events.
type KeyEvent struct {
	Key    string // "c", "Alt", "Escape", "Enter"
	Code   string // "KeyC", "AltLeft"
	Ctrl   bool
	Meta   bool
	Shift  bool
	Alt    bool
	Repeat bool
}

// Event is one input event delivered to listeners.
type Event struct {
	Kind   EventKind
	X, Y   float64
	Target Node
	Key    KeyEvent
}

// Disposition is a listener's verdict on an event.
type Disposition int

const (
	// Continue lets the event reach later listeners and the page.
	Continue Disposition = iota
	// Suppress prevents the default action and stops propagation.
	Suppress
)

// Listener handles one event.
type Listener func(Event) Disposition
