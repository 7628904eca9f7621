package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStreamRequired    = errors.New("stream is required")
	ErrAuthorRequired    = errors.New("author is required")
	ErrEmptyPost         = errors.New("post needs text or a code block")
	ErrIdentityRequired  = errors.New("username or email is required")
	ErrInvalidRange      = errors.New("range must span at least one line")
	ErrInvalidStreamKind = errors.New("stream kind must be channel or file")
)

// FieldError is one failed check on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (f FieldError) Error() string {
	if f.Field == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationErrors collects every failed check of a Validate call.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Add records err under field. Nested ValidationErrors are flattened with
// dotted field paths.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	var nested *ValidationErrors
	if errors.As(err, &nested) {
		for _, sub := range nested.Errors {
			sub.Field = joinField(field, sub.Field)
			v.Errors = append(v.Errors, sub)
		}
		return
	}
	v.Errors = append(v.Errors, FieldError{Field: field, Message: err.Error(), Cause: err})
}

// AddMessage records a failure without a sentinel cause.
func (v *ValidationErrors) AddMessage(field, message string) {
	if message == "" {
		return
	}
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing failed.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, err := range v.Errors {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is match any recorded sentinel.
func (v *ValidationErrors) Is(target error) bool {
	if v == nil {
		return false
	}
	for _, err := range v.Errors {
		if err.Cause != nil && errors.Is(err.Cause, target) {
			return true
		}
	}
	return false
}

func indexField(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}
