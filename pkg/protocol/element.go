package protocol

import "github.com/nextlevelbuilder/vibetorch/pkg/dom"

// ElementInfo is the structured description of one element at capture time.
// Values are snapshots; geometry goes stale as soon as layout changes.
type ElementInfo struct {
	TagName        string             `json:"tagName"`
	XPath          string             `json:"xpath"`
	Selector       string             `json:"selector"`
	Text           string             `json:"text"`
	InnerText      string             `json:"innerText"`
	Path           string             `json:"path"`
	Attributes     map[string]string  `json:"attributes"`
	Rect           dom.Rect           `json:"rect"`
	ClassName      string             `json:"className"`
	ID             string             `json:"id"`
	React          *ComponentInfo     `json:"react,omitempty"`
	Semantic       *SemanticInfo      `json:"semantic,omitempty"`
	DataSource     string             `json:"dataSource,omitempty"`
	ComputedStyles *ComputedStyles    `json:"computedStyles,omitempty"`
	Structural     *StructuralContext `json:"structural,omitempty"`
}

// ComponentInfo describes the component that rendered an element.
type ComponentInfo struct {
	ComponentName string          `json:"componentName"`
	Props         map[string]any  `json:"props,omitempty"`
	Source        *SourceLocation `json:"source,omitempty"`
	Key           string          `json:"key,omitempty"`
	TestID        string          `json:"testId,omitempty"`
}

// SourceLocation is where a component was declared. Present only in development builds.
type SourceLocation struct {
	FileName     string `json:"fileName"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// SemanticInfo carries accessibility and intent hints.
type SemanticInfo struct {
	Label      string `json:"label,omitempty"`
	Role       string `json:"role,omitempty"`
	TestID     string `json:"testId,omitempty"`
	AriaLabel  string `json:"ariaLabel,omitempty"`
	ActionText string `json:"actionText,omitempty"`
}

// ComputedStyles is the style snapshot taken by the analyzer.
type ComputedStyles struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	FontSize        string `json:"fontSize"`
	FontWeight      string `json:"fontWeight"`
	FontFamily      string `json:"fontFamily"`
	Display         string `json:"display"`
	Position        string `json:"position"`
	Visibility      string `json:"visibility"`
	Opacity         string `json:"opacity"`
	ZIndex          string `json:"zIndex"`
	Overflow        string `json:"overflow"`
}

// StructuralContext places an element within its parent.
type StructuralContext struct {
	Parent       ParentInfo `json:"parent"`
	Depth        int        `json:"depth"`
	SiblingCount int        `json:"siblingCount"`
}

// ParentInfo identifies an element's parent.
type ParentInfo struct {
	TagName   string `json:"tagName"`
	ClassName string `json:"className"`
	Selector  string `json:"selector"`
}
