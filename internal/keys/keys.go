// Package keys parses and matches keyboard bindings such as "Cmd+Shift+C" or
// a lone "Alt", and maps key presses to inspector actions.
package keys

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// DefaultSecondary is the secondary toggle binding.
const DefaultSecondary = "Alt"

// DefaultToggle returns the platform toggle chord.
func DefaultToggle() string {
	if runtime.GOOS == "darwin" {
		return "Cmd+Shift+C"
	}
	return "Ctrl+Shift+C"
}

var ErrEmptyBinding = errors.New("empty key binding")

type modifier int

const (
	modNone modifier = iota
	modMeta
	modCtrl
	modAlt
	modShift
)

var modifierAliases = map[string]modifier{
	"cmd":     modMeta,
	"meta":    modMeta,
	"command": modMeta,
	"ctrl":    modCtrl,
	"control": modCtrl,
	"alt":     modAlt,
	"option":  modAlt,
	"shift":   modShift,
}

// DOM key values of each modifier key.
var modifierKeys = map[modifier]string{
	modMeta:  "meta",
	modCtrl:  "control",
	modAlt:   "alt",
	modShift: "shift",
}

// Binding is a parsed key combination.
type Binding struct {
	Key   string // lower case; for a lone modifier, its canonical name
	Meta  bool
	Ctrl  bool
	Alt   bool
	Shift bool

	keyMod modifier
	raw    string
}

// Parse reads a "+"-separated binding. The last part is the key, the others
// are modifiers. Parts are case-insensitive.
func Parse(s string) (Binding, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Binding{}, ErrEmptyBinding
	}
	parts := strings.Split(strings.ToLower(s), "+")
	b := Binding{raw: s}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Binding{}, fmt.Errorf("key binding %q: empty part", s)
		}
		mod, isMod := modifierAliases[p]
		if i == len(parts)-1 {
			b.Key = p
			if isMod {
				b.keyMod = mod
				b.Key = modifierKeys[mod]
			}
			break
		}
		if !isMod {
			return Binding{}, fmt.Errorf("key binding %q: unknown modifier %q", s, p)
		}
		b.set(mod)
	}
	return b, nil
}

// MustParse is Parse for constant bindings.
func MustParse(s string) Binding {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Binding) set(m modifier) {
	switch m {
	case modMeta:
		b.Meta = true
	case modCtrl:
		b.Ctrl = true
	case modAlt:
		b.Alt = true
	case modShift:
		b.Shift = true
	}
}

// Lone reports whether the binding is a single modifier key.
func (b Binding) Lone() bool {
	return b.keyMod != modNone && !b.Meta && !b.Ctrl && !b.Alt && !b.Shift
}

// String returns the binding as it was written.
func (b Binding) String() string { return b.raw }

// Matches reports whether ev triggers the binding. Modifier state must match
// exactly, except that a key which is itself a modifier may be held.
func (b Binding) Matches(ev dom.KeyEvent) bool {
	if b.Key == "" {
		return false
	}
	if b.keyMod != modNone {
		if !modifierPressed(b.keyMod, ev) {
			return false
		}
	} else if !keyEquals(b.Key, ev) {
		return false
	}
	return flagMatches(b.Meta, ev.Meta, b.keyMod == modMeta) &&
		flagMatches(b.Ctrl, ev.Ctrl, b.keyMod == modCtrl) &&
		flagMatches(b.Alt, ev.Alt, b.keyMod == modAlt) &&
		flagMatches(b.Shift, ev.Shift, b.keyMod == modShift)
}

func flagMatches(want, got, isKey bool) bool {
	if isKey {
		return true
	}
	return want == got
}

func modifierPressed(m modifier, ev dom.KeyEvent) bool {
	name := modifierKeys[m]
	if strings.EqualFold(ev.Key, name) {
		return true
	}
	code := strings.ToLower(ev.Code)
	return code == name+"left" || code == name+"right" ||
		(m == modMeta && (code == "osleft" || code == "osright"))
}

// keyEquals compares case-insensitively on key, then on the physical code so
// Option-altered characters still match (Alt+C types "ç" on macOS).
func keyEquals(key string, ev dom.KeyEvent) bool {
	if strings.EqualFold(ev.Key, key) {
		return true
	}
	if ev.Code == "" {
		return false
	}
	code := strings.ToLower(ev.Code)
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return code == "key"+key
		case c >= '0' && c <= '9':
			return code == "digit"+key
		}
	}
	return code == key
}

// Action is what a key press asks the inspector to do.
type Action int

const (
	None Action = iota
	Toggle
	Stop
	Export
)

func (a Action) String() string {
	switch a {
	case Toggle:
		return "toggle"
	case Stop:
		return "stop"
	case Export:
		return "export"
	}
	return "none"
}

// Map holds the active bindings.
type Map struct {
	Primary   Binding
	Secondary Binding
	Enabled   bool
}

// NewMap parses primary and secondary bindings. Empty strings select the defaults.
func NewMap(primary, secondary string, enabled bool) (Map, error) {
	if primary == "" {
		primary = DefaultToggle()
	}
	if secondary == "" {
		secondary = DefaultSecondary
	}
	p, err := Parse(primary)
	if err != nil {
		return Map{}, err
	}
	s, err := Parse(secondary)
	if err != nil {
		return Map{}, err
	}
	return Map{Primary: p, Secondary: s, Enabled: enabled}, nil
}

// Resolve maps a key press to an action. Auto-repeats never trigger
// anything. Escape only stops an active session; Enter only exports when
// something is pinned.
func (m Map) Resolve(ev dom.KeyEvent, active bool, pinned int) Action {
	if ev.Repeat || !m.Enabled {
		return None
	}
	switch {
	case m.Primary.Matches(ev), m.Secondary.Matches(ev):
		return Toggle
	case ev.Key == "Escape" && active:
		return Stop
	case ev.Key == "Enter" && pinned > 0:
		return Export
	}
	return None
}
