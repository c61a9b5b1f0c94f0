package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidMediaType  = NewDomainError(ErrCodeValidation, "invalid media type")
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query text cannot be empty")
	ErrEmptyConversation = NewDomainError(ErrCodeValidation, "conversation id cannot be empty")
)

// Not found errors
var ErrArtifactNotFound = NewDomainError(ErrCodeNotFound, "artifact not found")

// Configuration errors. Fatal to a build or to serving: surfaced on every
// request until the configuration is fixed.
var (
	ErrIndexNotBuilt   = NewDomainError(ErrCodeConfiguration, "vector index has not been built")
	ErrEmptyChunkSet   = NewDomainError(ErrCodeConfiguration, "no chunks supplied, refusing to build an empty index")
	ErrModelMismatch   = NewDomainError(ErrCodeConfiguration, "embedding model identity does not match the persisted index")
	ErrMissingEmbedder = NewDomainError(ErrCodeConfiguration, "embedding provider is not configured")
)
