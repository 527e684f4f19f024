package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrUnavailable   = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrInsufficientVertices   = fmt.Errorf("insufficient vertices: %w", ErrInvalidInput)
	ErrInvalidIndex           = fmt.Errorf("vertex index: %w", ErrInvalidInput)
	ErrMinimumVertexViolation = fmt.Errorf("minimum vertex count: %w", ErrInvalidInput)
	ErrInvalidGeometry        = fmt.Errorf("geometry: %w", ErrInvalidInput)
	ErrInvalidPosition        = fmt.Errorf("position: %w", ErrInvalidInput)
	ErrInvalidStyle           = fmt.Errorf("style: %w", ErrInvalidInput)
	ErrUnsupportedGeometry    = fmt.Errorf("geometry type: %w", ErrUnsupported)
	ErrTerrainUnavailable     = fmt.Errorf("terrain: %w", ErrUnavailable)
	ErrStorageUnavailable     = fmt.Errorf("storage: %w", ErrUnavailable)
	ErrNotReady               = fmt.Errorf("service not ready: %w", ErrUnavailable)
	ErrFeatureNotFound        = fmt.Errorf("feature: %w", ErrNotFound)
	ErrDuplicateFeature       = fmt.Errorf("feature: %w", ErrAlreadyExists)
	ErrNotEditable            = fmt.Errorf("graphic not editable: %w", ErrUnsupported)
	ErrGraphicDestroyed       = errors.New("graphic destroyed")
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// VertexError describes a rejected structural edit on a vertex list.
type VertexError struct {
	Op    string // insert, update, remove
	Index int    // Requested index
	Count int    // Vertex count at the time of the edit
	Err   error  // ErrInvalidIndex or ErrMinimumVertexViolation
}

// Error implements the error interface.
func (e *VertexError) Error() string {
	return fmt.Sprintf("%s vertex %d of %d: %v", e.Op, e.Index, e.Count, e.Err)
}

// Unwrap returns the underlying error.
func (e *VertexError) Unwrap() error {
	return e.Err
}

// ImportError represents a GeoJSON feature that could not be imported.
type ImportError struct {
	Index  int    // Position in the FeatureCollection
	Reason string // Short description
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("import error at feature %d (%s): %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("import error at feature %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (list, get, put)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is caused by invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnavailable reports whether err signals a missing dependency.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
