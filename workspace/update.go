package workspace

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alimasry/go-collab-cms/model"
)

type UpdateKind string

const (
	UpdateSetField    UpdateKind = "set_field"
	UpdateSetName     UpdateKind = "set_name"
	UpdateSetContent  UpdateKind = "set_content"
	UpdateSetBody     UpdateKind = "set_body"
	UpdateSetTitle    UpdateKind = "set_title"
	UpdateSetURL      UpdateKind = "set_url"
	UpdateSetMimeType UpdateKind = "set_mime_type"
	UpdateSetAlt      UpdateKind = "set_alt"
)

var updateKinds = []any{
	UpdateSetField, UpdateSetName, UpdateSetContent, UpdateSetBody,
	UpdateSetTitle, UpdateSetURL, UpdateSetMimeType, UpdateSetAlt,
}

// Update is one change to a file. Name is only used by set_field.
type Update struct {
	Kind  UpdateKind `json:"kind" jsonschema:"enum=set_field,enum=set_name,enum=set_content,enum=set_body,enum=set_title,enum=set_url,enum=set_mime_type,enum=set_alt"`
	Name  string     `json:"name,omitempty"`
	Value string     `json:"value"`
}

func (u Update) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Kind, validation.Required, validation.In(updateKinds...)),
		validation.Field(&u.Name, validation.When(u.Kind == UpdateSetField, validation.Required)),
	)
}

// Apply performs u on f. A change f's kind does not carry fails with an
// UnsupportedValueError.
func (u Update) Apply(f model.File) error {
	if err := u.Validate(); err != nil {
		return err
	}
	unsupported := &model.UnsupportedValueError{Field: string(u.Kind)}

	switch u.Kind {
	case UpdateSetField:
		return f.SetField(u.Name, u.Value)
	case UpdateSetName:
		return f.SetName(u.Value)
	case UpdateSetContent:
		if c, ok := f.(model.HasContent); ok {
			return model.SetContent(c, u.Value)
		}
	case UpdateSetBody:
		if r, ok := f.(model.HasRichText); ok {
			return model.SetBody(r, u.Value)
		}
	case UpdateSetTitle:
		if t, ok := f.(model.HasTitle); ok {
			return model.SetTitle(t, u.Value)
		}
	case UpdateSetURL:
		if l, ok := f.(model.HasURL); ok {
			return model.SetURL(l, u.Value)
		}
	case UpdateSetMimeType:
		if m, ok := f.(model.HasMimeType); ok {
			return model.SetMimeType(m, u.Value)
		}
	case UpdateSetAlt:
		if a, ok := f.(model.HasAlt); ok {
			return model.SetAlt(a, u.Value)
		}
	default:
		return fmt.Errorf("unknown update kind %q", u.Kind)
	}
	return unsupported
}
