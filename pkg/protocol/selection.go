package protocol

// SelectionType is the type field of an export payload.
const SelectionType = Namespace + EventSelection

// Selection is the export payload consumed by external tools.
type Selection struct {
	Type      string            `json:"type"`
	Context   PageContext       `json:"context"`
	Elements  []SelectedElement `json:"elements"`
	Timestamp int64             `json:"timestamp"`
}

// PageContext describes the page the selection was taken from.
type PageContext struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Viewport Viewport `json:"viewport"`
}

// Viewport is the window size at export time.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SelectedElement is one exported element.
type SelectedElement struct {
	Index          int               `json:"index"`
	TagName        string            `json:"tagName"`
	Selector       string            `json:"selector"`
	Path           string            `json:"path"`
	Text           string            `json:"text"`
	InnerText      string            `json:"innerText"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Rect           ExportRect        `json:"rect"`
	ComputedStyles *ExportStyles     `json:"computedStyles,omitempty"`
	Parent         *ExportParent     `json:"parent,omitempty"`
	Semantic       *ExportSemantic   `json:"semantic,omitempty"`
	React          *ExportComponent  `json:"react,omitempty"`
}

// ExportRect is the geometry subset included in exports.
type ExportRect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ExportStyles is the style subset included in exports.
type ExportStyles struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	FontSize        string `json:"fontSize"`
	FontFamily      string `json:"fontFamily"`
	FontWeight      string `json:"fontWeight"`
	Display         string `json:"display"`
	Position        string `json:"position"`
	Visibility      string `json:"visibility"`
	Opacity         string `json:"opacity"`
}

// ExportParent is the parent summary included in exports.
type ExportParent struct {
	Tag   string `json:"tag"`
	Class string `json:"class,omitempty"`
	Depth int    `json:"depth"`
}

// ExportSemantic is the semantic summary included in exports.
type ExportSemantic struct {
	Role  string `json:"role,omitempty"`
	Label string `json:"label,omitempty"`
}

// ExportComponent is the component summary included in exports.
type ExportComponent struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props,omitempty"`
	File      string         `json:"file,omitempty"`
	Line      int            `json:"line,omitempty"`
}
