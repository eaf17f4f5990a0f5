// Package render writes values as JSON or YAML using their JSON field names.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	JSON = "json"
	YAML = "yaml"
)

// Marshal encodes v in format. JSON is indented with two spaces.
func Marshal(format string, v any) ([]byte, error) {
	switch format {
	case JSON, "":
		return json.MarshalIndent(v, "", "  ")
	case YAML:
		return toYAML(v)
	}
	return nil, fmt.Errorf("unsupported format %q (use json or yaml)", format)
}

// Write encodes v to w followed by a newline.
func Write(w io.Writer, format string, v any) error {
	data, err := Marshal(format, v)
	if err != nil {
		return err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

// toYAML goes through JSON so the keys and omitempty rules match the wire
// format, then re-emits the tree in block style.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
