package model

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// FieldType tags the value kind of a collection field.
type FieldType string

const (
	FieldRichText FieldType = "richtext"
	FieldText     FieldType = "text"
	FieldList     FieldType = "list"
	FieldMap      FieldType = "map"
	FieldDateTime FieldType = "datetime"
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldObject   FieldType = "object"
	FieldArray    FieldType = "array"
	FieldBlob     FieldType = "blob"
)

var fieldTypes = []any{
	FieldRichText, FieldText, FieldList, FieldMap, FieldDateTime,
	FieldString, FieldNumber, FieldObject, FieldArray, FieldBlob,
}

// ParseFieldType returns the FieldType for a tag.
func ParseFieldType(s string) (FieldType, error) {
	for _, t := range fieldTypes {
		if ft := t.(FieldType); string(ft) == s {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

func (t *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ft, err := ParseFieldType(s)
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

func (t *FieldType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	ft, err := ParseFieldType(s)
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

// FieldDefinition declares one field of a collection.
type FieldDefinition struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
}

func (f FieldDefinition) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Type, validation.Required, validation.In(fieldTypes...)),
	)
}

// Model is an ordered set of field definitions. Adding a name that is
// already present replaces the earlier definition.
type Model struct {
	fields []FieldDefinition
}

func NewModel(fields ...FieldDefinition) *Model {
	m := &Model{}
	for _, f := range fields {
		m.Add(f.Name, f.Type, f.Required)
	}
	return m
}

func (m *Model) Add(name string, t FieldType, required bool) *Model {
	def := FieldDefinition{Name: name, Type: t, Required: required}
	for i := range m.fields {
		if m.fields[i].Name == name {
			m.fields[i] = def
			return m
		}
	}
	m.fields = append(m.fields, def)
	return m
}

func (m *Model) Fields() []FieldDefinition {
	if m == nil {
		return nil
	}
	return append([]FieldDefinition(nil), m.fields...)
}

// CollectionSpec declares a collection in a collections file:
//
//	- name: events
//	  kind: post
//	  fields:
//	    - {name: starts, type: datetime, required: true}
//
// Project defaults to site.
type CollectionSpec struct {
	Name    string            `yaml:"name"`
	Kind    Kind              `yaml:"kind"`
	Project ProjectKind       `yaml:"project"`
	Fields  []FieldDefinition `yaml:"fields"`
}

func (c CollectionSpec) project() ProjectKind {
	if c.Project == "" {
		return ProjectSite
	}
	return c.Project
}

// ParseCollectionsYAML decodes and checks a list of collection specs.
func ParseCollectionsYAML(data []byte) ([]CollectionSpec, error) {
	var specs []CollectionSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse collections: %w", err)
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("parse collections: %w", &MissingFieldError{Field: KeyName})
		}
		if _, err := ParseKind(string(spec.Kind)); err != nil {
			return nil, fmt.Errorf("parse collections: %s: %w", spec.Name, err)
		}
		if _, err := ParseProjectKind(string(spec.project())); err != nil {
			return nil, fmt.Errorf("parse collections: %s: %w", spec.Name, err)
		}
		for _, f := range spec.Fields {
			if err := f.Validate(); err != nil {
				return nil, fmt.Errorf("parse collections: %s: field %q: %w", spec.Name, f.Name, err)
			}
		}
	}
	return specs, nil
}

// ProjectKind distinguishes sites from themes.
type ProjectKind string

const (
	ProjectSite  ProjectKind = "site"
	ProjectTheme ProjectKind = "theme"
)

func ParseProjectKind(s string) (ProjectKind, error) {
	switch ProjectKind(s) {
	case ProjectSite, ProjectTheme:
		return ProjectKind(s), nil
	}
	return "", fmt.Errorf("unknown project type %q", s)
}
