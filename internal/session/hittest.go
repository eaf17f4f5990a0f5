package session

import (
	"path"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

// HitTest returns the page element at (x, y) with the inspector overlay
// hidden for the duration of the query, so the overlay never shadows the
// real target. The overlay's previous visibility is restored.
func HitTest(doc dom.Document, x, y float64) dom.Node {
	ov := doc.Overlay()
	if ov == nil || !ov.Mounted() {
		return doc.ElementFromPoint(x, y)
	}
	wasHidden := ov.Hidden()
	ov.SetHidden(true)
	defer ov.SetHidden(wasHidden)
	return doc.ElementFromPoint(x, y)
}

// IsInspectorUI reports whether node or an ancestor belongs to the
// inspector's own UI.
func IsInspectorUI(node dom.Node) bool {
	for cur := node; cur != nil; cur = cur.Parent() {
		switch cur.ID() {
		case dom.InspectorRootID, dom.OverlayRootID:
			return true
		}
		if _, ok := cur.Attribute(dom.IgnoreAttribute); ok {
			return true
		}
		if strings.Contains(cur.ClassName(), dom.InspectorClass) {
			return true
		}
		if cur.InlineStyle("zIndex") == dom.OverlayZIndex {
			return true
		}
	}
	return false
}

// Label is the short text shown next to a highlighted element:
// "Component (file:line)", the build-time source tag, or "<tag#id.class>".
func Label(info protocol.ElementInfo) string {
	if r := info.React; r != nil && r.ComponentName != "" {
		if r.Source != nil && r.Source.FileName != "" {
			return r.ComponentName + " (" + path.Base(r.Source.FileName) + ":" + strconv.Itoa(r.Source.LineNumber) + ")"
		}
		return r.ComponentName
	}
	if info.DataSource != "" {
		file, line, _ := strings.Cut(info.DataSource, ":")
		line, _, _ = strings.Cut(line, ":")
		if line == "" {
			return path.Base(file)
		}
		return path.Base(file) + ":" + line
	}
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(info.TagName)
	if info.ID != "" {
		b.WriteString("#" + info.ID)
	}
	if classes := strings.Fields(info.ClassName); len(classes) > 0 {
		b.WriteString("." + classes[0])
	}
	b.WriteString(">")
	return b.String()
}
