package model

import (
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-cms/richtext"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrMissingField     = errors.New("missing field")
	ErrBuild            = errors.New("build failed")
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrPositionNotFound = richtext.ErrPositionNotFound

	// ErrNoStore is returned by builder setters called before the builder
	// has a metadata store.
	ErrNoStore = errors.New("builder has no store")
	// ErrNoDocument is returned for content operations on a file that only
	// carries cached metadata.
	ErrNoDocument = errors.New("file has no document")

	// ErrMissingID also matches ErrMissingField.
	ErrMissingID error = &MissingFieldError{Field: "id"}
)

type (
	// NotFoundError indicates a lookup miss.
	NotFoundError struct {
		Kind string // collection, file, field, parent
		Key  string
	}

	// MissingFieldError indicates a required metadata field is absent.
	MissingFieldError struct {
		Field string
	}

	// BuildError wraps a failure while initialising a file variant.
	BuildError struct {
		Kind Kind
		Err  error
	}

	// UnsupportedValueError indicates a value kind with no external
	// mapping, or an update the file variant does not support.
	UnsupportedValueError struct {
		Field string
	}

	PositionNotFoundError = richtext.PositionNotFoundError
)

func (e *NotFoundError) Error() string         { return fmt.Sprintf("%s %q not found", e.Kind, e.Key) }
func (e *MissingFieldError) Error() string     { return fmt.Sprintf("missing field %q", e.Field) }
func (e *BuildError) Error() string            { return fmt.Sprintf("build %s: %v", e.Kind, e.Err) }
func (e *UnsupportedValueError) Error() string { return fmt.Sprintf("unsupported value for %q", e.Field) }

func (e *NotFoundError) Is(target error) bool         { return target == ErrNotFound }
func (e *MissingFieldError) Is(target error) bool     { return target == ErrMissingField }
func (e *BuildError) Is(target error) bool            { return target == ErrBuild }
func (e *UnsupportedValueError) Is(target error) bool { return target == ErrUnsupportedValue }

func (e *BuildError) Unwrap() error { return e.Err }

func notFound(kind, key string) error { return &NotFoundError{Kind: kind, Key: key} }
