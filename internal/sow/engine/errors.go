// internal/sow/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("SPEC_VALIDATION_FAILED")
	ErrTemplateNotFound  = errors.New("TEMPLATE_NOT_FOUND")
	ErrInternalInvariant = errors.New("ENGINE_INVARIANT_VIOLATION")
)

// FieldError describes one rejected specification field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidationError lists every invalid field found during normalization.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return fmt.Sprintf("invalid project specifications: %s", strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HasField reports whether the given field was rejected.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type NotFoundError struct {
	TemplateID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found in catalog", e.TemplateID)
}

func (e *NotFoundError) Unwrap() error { return ErrTemplateNotFound }

// InternalInvariantError signals a catalog or rule-set authoring bug.
type InternalInvariantError struct {
	Detail string
}

func (e *InternalInvariantError) Error() string {
	return "engine invariant violated: " + e.Detail
}

func (e *InternalInvariantError) Unwrap() error { return ErrInternalInvariant }

func invariantf(format string, args ...interface{}) error {
	return &InternalInvariantError{Detail: fmt.Sprintf(format, args...)}
}
