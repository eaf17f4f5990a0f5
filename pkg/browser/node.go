package browser

import (
	"encoding/json"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// Node is a live element. Reads go to the page on every call; failures
// yield zero values, as they do for a detached element in the page.
type Node struct {
	page *Page
	id   proto.DOMBackendNodeID
	el   *rod.Element
}

var _ dom.Node = (*Node)(nil)

// BackendID returns the element's CDP backend node id.
func (n *Node) BackendID() proto.DOMBackendNodeID { return n.id }

func (n *Node) eval(js string, args ...any) gson.JSON {
	res, err := n.el.Eval(js, args...)
	if err != nil {
		n.page.logger.Debug("browser: element read failed", "node", n.id, "error", err)
		return gson.New(nil)
	}
	return res.Value
}

func (n *Node) TagName() string { return n.eval(jsTagName).Str() }

func (n *Node) ID() string { return n.StringProperty("id") }

func (n *Node) ClassName() string { return n.eval(jsClassName).Str() }

func (n *Node) Attribute(name string) (string, bool) {
	v, err := n.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (n *Node) Attributes() []dom.Attr { return attrPairs(n.eval(jsAttrs)) }

// Parent returns the parent element, or nil at the document element.
func (n *Node) Parent() dom.Node {
	obj, err := n.el.Evaluate(rod.Eval(jsParent).ByObject())
	if err != nil {
		return nil
	}
	return n.page.nodeFromObject(obj)
}

func (n *Node) Children() []dom.Node {
	els, err := n.el.Elements(":scope > *")
	if err != nil {
		return nil
	}
	out := make([]dom.Node, 0, len(els))
	for _, el := range els {
		if c := n.page.nodeFromObject(el.Object); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) TextContent() string { return n.StringProperty("textContent") }

func (n *Node) InnerText() string { return n.StringProperty("innerText") }

func (n *Node) StringProperty(name string) string { return n.eval(jsProperty, name).Str() }

func (n *Node) InlineStyle(prop string) string { return n.eval(jsInline, prop).Str() }

func (n *Node) ComputedStyle(prop string) string { return n.eval(jsComputed, prop).Str() }

func (n *Node) BoundingRect() dom.Rect { return rectFrom(n.eval(jsRect)) }

// Properties exposes the element's own script properties, including
// framework expandos such as __reactFiber$.
func (n *Node) Properties() dom.Object {
	if n.el.Object == nil || n.el.Object.ObjectID == "" {
		return nil
	}
	return n.page.canonicalObject(n.el.Object.ObjectID, false)
}

// attrPairs converts [[name, value], ...] into attributes.
func attrPairs(v gson.JSON) []dom.Attr {
	arr := v.Arr()
	out := make([]dom.Attr, 0, len(arr))
	for _, pair := range arr {
		kv := pair.Arr()
		if len(kv) != 2 {
			continue
		}
		out = append(out, dom.Attr{Name: kv[0].Str(), Value: kv[1].Str()})
	}
	return out
}

// rectFrom converts {x, y, width, height} into a Rect.
func rectFrom(v gson.JSON) dom.Rect {
	var r struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal([]byte(v.JSON("", "")), &r); err != nil {
		return dom.Rect{}
	}
	return dom.NewRect(r.X, r.Y, r.Width, r.Height)
}
