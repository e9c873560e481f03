package richtext

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarkSpec describes an inline mark. Only Inclusive is interpreted here.
type MarkSpec struct {
	Inclusive bool           `json:"inclusive" yaml:"inclusive"`
	Attrs     map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// NodeSpec describes a node type of the external editor.
type NodeSpec struct {
	Content    string         `json:"content,omitempty" yaml:"content,omitempty"`
	Group      string         `json:"group,omitempty" yaml:"group,omitempty"`
	Inline     bool           `json:"inline,omitempty" yaml:"inline,omitempty"`
	Selectable bool           `json:"selectable,omitempty" yaml:"selectable,omitempty"`
	Draggable  bool           `json:"draggable,omitempty" yaml:"draggable,omitempty"`
	Attrs      map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Schema is the editor schema a rich-text file was created with.
type Schema struct {
	Marks   map[string]MarkSpec `json:"marks" yaml:"marks"`
	Nodes   map[string]NodeSpec `json:"nodes" yaml:"nodes"`
	TopNode string              `json:"top_node" yaml:"top_node"`
}

// DefaultSchema returns a schema with no marks or nodes and "doc" as the
// top node.
func DefaultSchema() Schema {
	return Schema{
		Marks:   map[string]MarkSpec{},
		Nodes:   map[string]NodeSpec{},
		TopNode: RootKey,
	}
}

// ParseSchema decodes a JSON schema. An empty string yields the default.
func ParseSchema(s string) (Schema, error) {
	if s == "" {
		return DefaultSchema(), nil
	}
	var schema Schema
	if err := json.Unmarshal([]byte(s), &schema); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}
	return schema.withDefaults(), nil
}

// ParseSchemaYAML decodes a schema written as YAML.
func ParseSchemaYAML(data []byte) (Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}
	return schema.withDefaults(), nil
}

// String encodes the schema as JSON, the form stored in file metadata.
func (s Schema) String() string {
	b, err := json.Marshal(s.withDefaults())
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (s Schema) withDefaults() Schema {
	if s.Marks == nil {
		s.Marks = map[string]MarkSpec{}
	}
	if s.Nodes == nil {
		s.Nodes = map[string]NodeSpec{}
	}
	if s.TopNode == "" {
		s.TopNode = RootKey
	}
	return s
}
