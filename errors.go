package ignite

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the ignite package.
var (
	// ErrEmptySeries is returned when an operation receives no records.
	ErrEmptySeries = errors.New("non-empty series required")

	// ErrMissingValue is returned when a required field is absent or not numeric.
	ErrMissingValue = errors.New("missing numeric value")

	// ErrInvalidAlpha is returned when a smoothing factor is outside (0, 1].
	ErrInvalidAlpha = errors.New("smoothing factor must be in (0, 1]")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrReportNotFound is returned when an archived report does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store is closed")
)

// ValidationErrorType categorizes caller errors.
type ValidationErrorType int

const (
	// ValidationErrorTypeEmpty indicates an empty dataset.
	ValidationErrorTypeEmpty ValidationErrorType = iota
	// ValidationErrorTypeMissing indicates a missing or non-numeric field.
	ValidationErrorTypeMissing
	// ValidationErrorTypeRange indicates a configuration value out of range.
	ValidationErrorTypeRange
	// ValidationErrorTypeAlpha indicates an invalid smoothing factor.
	ValidationErrorTypeAlpha
)

// ValidationError describes input the engine refuses to compute on.
type ValidationError struct {
	Type    ValidationErrorType
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ValidationError.
func (e *ValidationError) Is(target error) bool {
	switch e.Type {
	case ValidationErrorTypeEmpty:
		return target == ErrEmptySeries
	case ValidationErrorTypeMissing:
		return target == ErrMissingValue
	case ValidationErrorTypeRange:
		return target == ErrInvalidConfig
	case ValidationErrorTypeAlpha:
		return target == ErrInvalidAlpha
	}
	return false
}

func newValidationError(errType ValidationErrorType, message, field string, cause error) *ValidationError {
	return &ValidationError{
		Type:    errType,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

func errEmptySeries() error {
	return newValidationError(ValidationErrorTypeEmpty, ErrEmptySeries.Error(), "", nil)
}

func errMissingValue(field string) error {
	return newValidationError(ValidationErrorTypeMissing, ErrMissingValue.Error(), field, nil)
}

func errOutOfRange(field, message string) error {
	return newValidationError(ValidationErrorTypeRange, message, field, nil)
}

// IsValidation reports whether err is a caller error rather than an
// infrastructure failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageErrorType categorizes storage errors.
type StorageErrorType int

const (
	// StorageErrorTypeUnknown is an unclassified storage error.
	StorageErrorTypeUnknown StorageErrorType = iota
	// StorageErrorTypeRead indicates a read failure.
	StorageErrorTypeRead
	// StorageErrorTypeWrite indicates a write failure.
	StorageErrorTypeWrite
	// StorageErrorTypeNotFound indicates a missing key.
	StorageErrorTypeNotFound
	// StorageErrorTypeCorruption indicates an undecodable payload.
	StorageErrorTypeCorruption
)

// StorageError provides detailed information about report and series storage failures.
type StorageError struct {
	Type    StorageErrorType
	Message string
	Key     string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s [%s]: %v", e.Message, e.Key, e.Cause)
		}
		return fmt.Sprintf("%s [%s]", e.Message, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for StorageError.
func (e *StorageError) Is(target error) bool {
	return e.Type == StorageErrorTypeNotFound && target == ErrReportNotFound
}

func newStorageError(errType StorageErrorType, message, key string, cause error) *StorageError {
	return &StorageError{
		Type:    errType,
		Message: message,
		Key:     key,
		Cause:   cause,
	}
}
