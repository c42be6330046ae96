// Package errors provides a lightweight structured error type (EngineError)
// for category-based classification in the CLI and the preview server.
package errors

import "fmt"

// Category classifies an engine error.
type Category string

const (
	// CategoryValidation covers rejected option values and bad input shapes.
	CategoryValidation Category = "validation"
	// CategoryIO covers file and stream failures.
	CategoryIO Category = "io"
	// CategoryRender covers renderer failures.
	CategoryRender Category = "render"
	// CategoryServer covers preview server failures.
	CategoryServer Category = "server"
	// CategoryInternal covers everything else.
	CategoryInternal Category = "internal"
)

// EngineError is a structured error with category, operation and context.
type EngineError struct {
	Category Category       `json:"category"`
	Op       string         `json:"op"`
	Message  string         `json:"message"`
	Cause    error          `json:"cause,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Category, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Category, e.Op, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a context field and returns the error.
func (e *EngineError) WithContext(key string, value any) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates an EngineError.
func New(category Category, op, message string) *EngineError {
	return &EngineError{Category: category, Op: op, Message: message}
}

// NewValidation creates a validation error.
func NewValidation(op, message string) *EngineError {
	return New(CategoryValidation, op, message)
}

// NewIO creates an IO error.
func NewIO(op, message string) *EngineError {
	return New(CategoryIO, op, message)
}

// Wrap creates an EngineError around err. When err is itself an EngineError
// the category is inherited, otherwise the error is classified internal.
func Wrap(err error, op, message string) *EngineError {
	category := CategoryInternal
	if ee, ok := err.(*EngineError); ok {
		category = ee.Category
	}
	return &EngineError{Category: category, Op: op, Message: message, Cause: err}
}

// WrapIO wraps err as an IO error.
func WrapIO(err error, op, message string) *EngineError {
	return &EngineError{Category: CategoryIO, Op: op, Message: message, Cause: err}
}

// IsCategory checks whether err or any error it wraps has the category.
func IsCategory(err error, category Category) bool {
	for err != nil {
		if ee, ok := err.(*EngineError); ok && ee.Category == category {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
