package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeAcquisition     ErrorType = "acquisition"
	ErrorTypeEmptyDocument   ErrorType = "empty_document"
	ErrorTypeRasterization   ErrorType = "rasterization"
	ErrorTypeExtractionParse ErrorType = "extraction_parse"
	ErrorTypeService         ErrorType = "service"
	ErrorTypePersistence     ErrorType = "persistence"
	ErrorTypeConfig          ErrorType = "config"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the type of the first DomainError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err carries a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Common error constructors
func AcquisitionError(message string, err error) *DomainError {
	return NewError(ErrorTypeAcquisition, message, err)
}

func EmptyDocumentError(message string, err error) *DomainError {
	return NewError(ErrorTypeEmptyDocument, message, err)
}

func RasterizationError(message string, err error) *DomainError {
	return NewError(ErrorTypeRasterization, message, err)
}

func ExtractionParseError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtractionParse, message, err)
}

func ServiceError(message string, err error) *DomainError {
	return NewError(ErrorTypeService, message, err)
}

func PersistenceError(message string, err error) *DomainError {
	return NewError(ErrorTypePersistence, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}
