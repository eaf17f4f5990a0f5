package browser

import (
	"fmt"
	"strconv"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// bindingName is the page-global function the listener script reports to.
const bindingName = "__vibetorchEmit"

// uiSelector matches inspector-owned UI inside the page.
var uiSelector = fmt.Sprintf("#%s, #%s, [%s], .%s",
	dom.OverlayRootID, dom.InspectorRootID, dom.IgnoreAttribute, dom.InspectorClass)

// listenerScript installs capture-phase input listeners that forward events
// to the binding. Pointer moves are coalesced to one per animation frame.
// Event targets are kept in a small ring so the host can resolve them by id.
func listenerScript(binding string) string {
	return `(() => {
  if (window.__vibetorch) return;
  const ui = ` + strconv.Quote(uiSelector) + `;
  const state = { blockClicks: false, seq: 0, targets: new Map() };
  window.__vibetorch = state;
  state.target = (id) => state.targets.get(id) || null;
  const isUI = (t) => t instanceof Element && t.closest(ui) !== null;
  const send = (e, payload) => {
    const id = ++state.seq;
    state.targets.set(id, e.target);
    if (state.targets.size > 64) state.targets.delete(state.targets.keys().next().value);
    payload.id = id;
    payload.ui = isUI(e.target);
    const fn = window[` + strconv.Quote(binding) + `];
    if (typeof fn === 'function') fn(payload);
  };
  let pending = null;
  document.addEventListener('pointermove', (e) => {
    const first = pending === null;
    pending = e;
    if (!first) return;
    requestAnimationFrame(() => {
      const ev = pending;
      pending = null;
      send(ev, { kind: 'pointermove', x: ev.clientX, y: ev.clientY });
    });
  }, { capture: false, passive: true });
  document.addEventListener('click', (e) => {
    if (state.blockClicks && !isUI(e.target)) {
      e.preventDefault();
      e.stopPropagation();
    }
    send(e, { kind: 'click', x: e.clientX, y: e.clientY });
  }, true);
  window.addEventListener('scroll', (e) => send(e, { kind: 'scroll' }), { capture: true, passive: true });
  document.addEventListener('pointerout', (e) => {
    if (e.relatedTarget === null) send(e, { kind: 'pointerleave', x: e.clientX, y: e.clientY });
  });
  document.addEventListener('keydown', (e) => send(e, { kind: 'keydown', key: {
    key: e.key, code: e.code, ctrl: e.ctrlKey, meta: e.metaKey,
    shift: e.shiftKey, alt: e.altKey, repeat: e.repeat,
  } }), true);
})()`
}

// overlayScript installs the overlay helper. Boxes are fixed-position
// divs under the overlay root and never receive pointer events.
var overlayScript = `(() => {
  if (window.__vibetorchOverlay) return;
  const boxes = new Map();
  let root = null;
  const z = ` + strconv.Quote(dom.OverlayZIndex) + `;
  const labels = new Set(['label', 'pin-label']);
  window.__vibetorchOverlay = {
    mount(id) {
      if (root && root.isConnected) return;
      root = document.createElement('div');
      root.id = id;
      Object.assign(root.style, { position: 'fixed', top: '0', left: '0', width: '0', height: '0', pointerEvents: 'none', zIndex: z });
      (document.body || document.documentElement).appendChild(root);
    },
    unmount() {
      if (root) root.remove();
      root = null;
      boxes.clear();
    },
    hidden(h) {
      if (root) root.style.display = h ? 'none' : '';
    },
    box(id, role) {
      if (!root) return;
      const el = document.createElement('div');
      el.setAttribute(` + strconv.Quote(dom.BoxRoleAttribute) + `, role);
      Object.assign(el.style, {
        position: 'fixed', display: 'none', boxSizing: 'border-box', pointerEvents: 'none', zIndex: z,
        font: '12px ui-monospace, monospace', color: '#fff', whiteSpace: 'nowrap', overflow: 'hidden',
      });
      root.appendChild(el);
      boxes.set(id, { el, role });
    },
    place(id, x, y, w, h) {
      const b = boxes.get(id);
      if (!b) return;
      Object.assign(b.el.style, { left: x + 'px', top: y + 'px', width: w + 'px', height: h + 'px' });
    },
    text(id, t) {
      const b = boxes.get(id);
      if (b) b.el.textContent = t;
    },
    tone(id, color) {
      const b = boxes.get(id);
      if (!b) return;
      if (labels.has(b.role)) {
        b.el.style.background = color;
        b.el.style.padding = '4px 8px';
      } else {
        b.el.style.border = '2px solid ' + color;
        b.el.style.background = color + '1a';
      }
    },
    show(id) {
      const b = boxes.get(id);
      if (b) b.el.style.display = 'block';
    },
    hide(id) {
      const b = boxes.get(id);
      if (b) b.el.style.display = 'none';
    },
    remove(id) {
      const b = boxes.get(id);
      if (b) b.el.remove();
      boxes.delete(id);
    },
  };
})()`

// Element-side snippets. rod binds this to the element.
const (
	jsTagName        = `() => this.tagName.toLowerCase()`
	jsAttrs          = `() => Array.from(this.attributes, (a) => [a.name, a.value])`
	jsRect           = `() => { const r = this.getBoundingClientRect(); return { x: r.x, y: r.y, width: r.width, height: r.height }; }`
	jsInline         = `(p) => (this.style && this.style[p]) || ''`
	jsComputed       = `(p) => getComputedStyle(this)[p] || ''`
	jsProperty       = `(p) => { const v = this[p]; return typeof v === 'string' ? v : ''; }`
	jsClassName      = `() => this.getAttribute('class') || ''`
	jsParent         = `() => this.parentElement`
	jsViewport       = `() => [window.innerWidth, window.innerHeight]`
	jsHasGlobal      = `(n) => n in window && window[n] != null`
	jsBody           = `() => document.body`
	jsTarget         = `(id) => window.__vibetorch ? window.__vibetorch.target(id) : null`
	jsSource         = `function() { return Function.prototype.toString.call(this); }`
	jsObjectIdentity = `function() {
  const g = globalThis;
  if (!g.__vibetorchIds) Object.defineProperty(g, "__vibetorchIds", { value: { seq: 0, ids: new WeakMap() } });
  const reg = g.__vibetorchIds;
  let id = reg.ids.get(this);
  if (id === undefined) { id = ++reg.seq; reg.ids.set(this, id); }
  return id;
}`
	jsBlock = `(on) => { if (window.__vibetorch) window.__vibetorch.blockClicks = on; }`
)
