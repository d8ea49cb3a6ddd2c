package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals a malformed request.
	ErrValidation = errors.New("validation error")
	// ErrUnknownEntityType signals an entity type absent from the registry.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrEmbeddingFailure signals that the embedding backend could not produce a vector.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrBackendUnavailable signals that the vector store could not serve the request.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrTimeout signals that the request deadline passed before completion.
	ErrTimeout = errors.New("timeout")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIngestLocked signals that another writer holds the collection.
	ErrIngestLocked = errors.New("collection is locked by another ingest")
)

// Stable machine-readable error kinds exposed to clients.
const (
	KindValidation         = "validation_error"
	KindUnknownEntityType  = "unknown_entity_type"
	KindEmbeddingFailure   = "embedding_failure"
	KindBackendUnavailable = "backend_unavailable"
	KindTimeout            = "timeout"
	KindNotFound           = "not_found"
	KindInternal           = "internal_error"
)

// KindOf maps an error to its stable kind. Unknown errors are internal.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnknownEntityType):
		return KindUnknownEntityType
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrEmbeddingFailure):
		return KindEmbeddingFailure
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// UnknownEntityTypeError wraps ErrUnknownEntityType with the rejected name.
type UnknownEntityTypeError struct {
	Name string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownEntityType.Error(), e.Name)
}

func (e *UnknownEntityTypeError) Unwrap() error { return ErrUnknownEntityType }

// NewUnknownEntityType creates an unknown entity type error.
func NewUnknownEntityType(name string) error {
	return &UnknownEntityTypeError{Name: name}
}

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error for a field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DimMismatchError wraps ErrVectorDimMismatch with both sides of the comparison.
type DimMismatchError struct {
	Source   string
	Expected int
	Actual   int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: %s has %d, expected %d",
		ErrVectorDimMismatch.Error(), e.Source, e.Actual, e.Expected)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(source string, expected, actual int) error {
	return &DimMismatchError{Source: source, Expected: expected, Actual: actual}
}
