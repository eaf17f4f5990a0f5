package browser

import (
	"sync"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// Overlay draws inspector boxes through the injected overlay helper.
// Mount state is tracked host-side and reset when the document goes away.
type Overlay struct {
	page *Page

	mu      sync.Mutex
	mounted bool
	hidden  bool
	nextBox int
}

var _ dom.Overlay = (*Overlay)(nil)

func (o *Overlay) call(js string, args ...any) {
	if _, err := o.page.page.Eval(js, args...); err != nil {
		o.page.logger.Debug("browser: overlay call failed", "error", err)
	}
}

func (o *Overlay) Mount() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mounted {
		return nil
	}
	if _, err := o.page.page.Eval("() => " + overlayScript); err != nil {
		return err
	}
	if _, err := o.page.page.Eval(`(id) => window.__vibetorchOverlay.mount(id)`, dom.OverlayRootID); err != nil {
		return err
	}
	o.mounted = true
	o.hidden = false
	return nil
}

func (o *Overlay) Unmount() {
	o.mu.Lock()
	was := o.mounted
	o.mounted = false
	o.hidden = false
	o.mu.Unlock()
	if was {
		o.call(`() => window.__vibetorchOverlay && window.__vibetorchOverlay.unmount()`)
	}
}

func (o *Overlay) Mounted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mounted
}

func (o *Overlay) SetHidden(hidden bool) {
	o.mu.Lock()
	o.hidden = hidden
	mounted := o.mounted
	o.mu.Unlock()
	if mounted {
		o.call(`(h) => window.__vibetorchOverlay.hidden(h)`, hidden)
	}
}

func (o *Overlay) Hidden() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hidden
}

func (o *Overlay) NewBox(role dom.BoxRole) dom.Box {
	o.mu.Lock()
	o.nextBox++
	b := &box{overlay: o, id: o.nextBox, role: role}
	o.mu.Unlock()
	o.call(`(id, role) => window.__vibetorchOverlay.box(id, role)`, b.id, role.String())
	return b
}

// reset forgets page-side state after the document is replaced.
func (o *Overlay) reset() {
	o.mu.Lock()
	o.mounted = false
	o.hidden = false
	o.mu.Unlock()
}

type box struct {
	overlay *Overlay
	id      int
	role    dom.BoxRole
}

func (b *box) Role() dom.BoxRole { return b.role }

func (b *box) Place(r dom.Rect) {
	b.overlay.call(`(id, x, y, w, h) => window.__vibetorchOverlay.place(id, x, y, w, h)`, b.id, r.Left, r.Top, r.Width, r.Height)
}

func (b *box) SetText(text string) {
	b.overlay.call(`(id, t) => window.__vibetorchOverlay.text(id, t)`, b.id, text)
}

func (b *box) SetTone(t dom.Tone) {
	b.overlay.call(`(id, c) => window.__vibetorchOverlay.tone(id, c)`, b.id, t.Color())
}

func (b *box) Show() { b.overlay.call(`(id) => window.__vibetorchOverlay.show(id)`, b.id) }

func (b *box) Hide() { b.overlay.call(`(id) => window.__vibetorchOverlay.hide(id)`, b.id) }

func (b *box) Remove() { b.overlay.call(`(id) => window.__vibetorchOverlay.remove(id)`, b.id) }
