package keys

import (
	"errors"
	"testing"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Binding
		wantErr bool
	}{
		{in: "Cmd+Shift+C", want: Binding{Key: "c", Meta: true, Shift: true}},
		{in: "control + alt + k", want: Binding{Key: "k", Ctrl: true, Alt: true}},
		{in: "Option", want: Binding{Key: "alt"}},
		{in: "meta+Enter", want: Binding{Key: "enter", Meta: true}},
		{in: "", wantErr: true},
		{in: "ctrl++", wantErr: true},
		{in: "hyper+c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Key != tt.want.Key || got.Meta != tt.want.Meta || got.Ctrl != tt.want.Ctrl ||
				got.Alt != tt.want.Alt || got.Shift != tt.want.Shift {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
	if _, err := Parse("  "); !errors.Is(err, ErrEmptyBinding) {
		t.Errorf("blank binding err = %v", err)
	}
}

func TestMatches(t *testing.T) {
	chord := MustParse("Cmd+Shift+C")
	lone := MustParse("Alt")
	tests := []struct {
		name string
		b    Binding
		ev   dom.KeyEvent
		want bool
	}{
		{"chord", chord, dom.KeyEvent{Key: "C", Code: "KeyC", Meta: true, Shift: true}, true},
		{"chord lower case key", chord, dom.KeyEvent{Key: "c", Meta: true, Shift: true}, true},
		{"chord extra modifier", chord, dom.KeyEvent{Key: "c", Meta: true, Shift: true, Alt: true}, false},
		{"chord missing modifier", chord, dom.KeyEvent{Key: "c", Meta: true}, false},
		{"chord by code", MustParse("Alt+C"), dom.KeyEvent{Key: "ç", Code: "KeyC", Alt: true}, true},
		{"digit by code", MustParse("Ctrl+1"), dom.KeyEvent{Key: "!", Code: "Digit1", Ctrl: true}, true},
		{"lone alt", lone, dom.KeyEvent{Key: "Alt", Code: "AltLeft", Alt: true}, true},
		{"lone alt by code", lone, dom.KeyEvent{Key: "Unidentified", Code: "AltRight", Alt: true}, true},
		{"lone alt with shift", lone, dom.KeyEvent{Key: "Alt", Alt: true, Shift: true}, false},
		{"lone alt wrong key", lone, dom.KeyEvent{Key: "a"}, false},
		{"lone meta", MustParse("cmd"), dom.KeyEvent{Key: "Meta", Code: "MetaLeft", Meta: true}, true},
		{"zero binding", Binding{}, dom.KeyEvent{Key: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	m, err := NewMap("Ctrl+Shift+C", "", true)
	if err != nil {
		t.Fatal(err)
	}
	toggle := dom.KeyEvent{Key: "c", Ctrl: true, Shift: true}
	tests := []struct {
		name   string
		ev     dom.KeyEvent
		active bool
		pinned int
		want   Action
	}{
		{"primary", toggle, false, 0, Toggle},
		{"secondary default", dom.KeyEvent{Key: "Alt", Alt: true}, true, 0, Toggle},
		{"repeat ignored", dom.KeyEvent{Key: "c", Ctrl: true, Shift: true, Repeat: true}, false, 0, None},
		{"escape active", dom.KeyEvent{Key: "Escape"}, true, 0, Stop},
		{"escape inactive", dom.KeyEvent{Key: "Escape"}, false, 0, None},
		{"enter with pins", dom.KeyEvent{Key: "Enter"}, true, 2, Export},
		{"enter without pins", dom.KeyEvent{Key: "Enter"}, true, 0, None},
		{"other key", dom.KeyEvent{Key: "x"}, true, 1, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Resolve(tt.ev, tt.active, tt.pinned); got != tt.want {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
		})
	}

	m.Enabled = false
	if got := m.Resolve(toggle, false, 0); got != None {
		t.Errorf("disabled map resolved %v", got)
	}
}

func TestNewMap_Defaults(t *testing.T) {
	m, err := NewMap("", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if m.Primary.String() != DefaultToggle() || m.Secondary.String() != DefaultSecondary {
		t.Errorf("defaults = %q / %q", m.Primary, m.Secondary)
	}
	if _, err := NewMap("ctrl+", "", true); err == nil {
		t.Error("expected parse error")
	}
}
