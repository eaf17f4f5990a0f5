package export

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrClipboardUnavailable is returned when every clipboard mechanism failed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard writes export text to the system clipboard, falling back to an
// OSC 52 terminal escape when no native clipboard is reachable.
type Clipboard struct {
	primary  func(string) error
	fallback io.Writer
	logger   *slog.Logger
}

// ClipboardOption configures a Clipboard.
type ClipboardOption func(*Clipboard)

// WithPrimary replaces the native clipboard writer.
func WithPrimary(fn func(string) error) ClipboardOption {
	return func(c *Clipboard) { c.primary = fn }
}

// WithFallback sets the terminal the OSC 52 sequence is written to. A nil
// writer disables the fallback.
func WithFallback(w io.Writer) ClipboardOption {
	return func(c *Clipboard) { c.fallback = w }
}

func WithClipboardLogger(l *slog.Logger) ClipboardOption {
	return func(c *Clipboard) { c.logger = l }
}

// NewClipboard returns a clipboard using the native clipboard first and
// stderr as the OSC 52 fallback.
func NewClipboard(opts ...ClipboardOption) *Clipboard {
	c := &Clipboard{
		primary:  nativeWrite,
		fallback: os.Stderr,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func nativeWrite(text string) error {
	if clipboard.Unsupported {
		return errors.New("no native clipboard")
	}
	return clipboard.WriteAll(text)
}

// Write copies text. Intermediate failures are logged at debug level; only
// when every mechanism fails is ErrClipboardUnavailable returned.
func (c *Clipboard) Write(text string) error {
	if c.primary != nil {
		err := c.primary(text)
		if err == nil {
			return nil
		}
		c.logger.Debug("export: native clipboard failed, trying osc52", "error", err)
	}
	if c.fallback != nil {
		_, err := osc52.New(text).WriteTo(c.fallback)
		if err == nil {
			return nil
		}
		c.logger.Debug("export: osc52 clipboard failed", "error", err)
	}
	return ErrClipboardUnavailable
}
