package analyzer

import (
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// XPath returns an absolute positional path such as /html/body/div[2]/button.
// An element with an id gets the short form //*[@id="..."].
func XPath(node dom.Node) string {
	if node == nil {
		return ""
	}
	if id := node.ID(); id != "" {
		return `//*[@id="` + id + `"]`
	}
	var parts []string
	for cur := node; cur != nil; cur = cur.Parent() {
		tag := cur.TagName()
		if idx := typeIndex(cur); idx > 1 {
			tag += "[" + strconv.Itoa(idx) + "]"
		}
		parts = append(parts, tag)
	}
	reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// Selector returns a CSS selector built from tag and first class per
// ancestor, stopping below body or at the nearest ancestor with an id.
// Same-tag siblings are told apart with :nth-of-type.
func Selector(node dom.Node) string {
	if node == nil {
		return ""
	}
	if id := node.ID(); id != "" {
		return "#" + id
	}
	var parts []string
	for cur := node; cur != nil && cur.TagName() != "body"; cur = cur.Parent() {
		if id := cur.ID(); id != "" {
			parts = append(parts, "#"+id)
			break
		}
		token := cur.TagName()
		if classes := strings.Fields(cur.ClassName()); len(classes) > 0 {
			token += "." + classes[0]
		}
		if parent := cur.Parent(); parent != nil && sameTagCount(parent, cur.TagName()) > 1 {
			token += ":nth-of-type(" + strconv.Itoa(typeIndex(cur)) + ")"
		}
		parts = append(parts, token)
	}
	reverse(parts)
	return strings.Join(parts, " > ")
}

// Path lists every ancestor with all of its classes, for example
// main.app.shell > div.card > button.btn.primary.
func Path(node dom.Node) string {
	var parts []string
	for cur := node; cur != nil; cur = cur.Parent() {
		token := cur.TagName()
		if classes := strings.Fields(cur.ClassName()); len(classes) > 0 {
			token += "." + strings.Join(classes, ".")
		}
		parts = append(parts, token)
	}
	reverse(parts)
	return strings.Join(parts, " > ")
}

// typeIndex is the 1-based position of node among its same-tag siblings.
func typeIndex(node dom.Node) int {
	parent := node.Parent()
	if parent == nil {
		return 1
	}
	idx := 0
	tag := node.TagName()
	for _, c := range parent.Children() {
		if c.TagName() != tag {
			continue
		}
		idx++
		if c == node {
			return idx
		}
	}
	return 1
}

func sameTagCount(parent dom.Node, tag string) int {
	n := 0
	for _, c := range parent.Children() {
		if c.TagName() == tag {
			n++
		}
	}
	return n
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
