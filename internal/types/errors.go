package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a typed string for categorizing pipeline errors.
type ErrorCode string

// Error code constants. Resolvers and stages MUST use these constants instead
// of hardcoded strings so the fatal/recoverable classification stays in one
// place.
const (
	// Fatal: data/configuration defects the pipeline cannot work around.
	ErrCodeGroupNotFound           ErrorCode = "group_not_found"
	ErrCodeConfigSetEmpty          ErrorCode = "config_set_empty"
	ErrCodeConfigSelectionEmpty    ErrorCode = "config_selection_empty"
	ErrCodeTemplateSettingsMissing ErrorCode = "template_settings_missing"
	ErrCodeInvalidEvent            ErrorCode = "validation_invalid_event"
	ErrCodeInternalDB              ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected      ErrorCode = "internal_unexpected_error"

	// Recoverable: degrade in place, never abort the run.
	ErrCodeTemplateNotFound    ErrorCode = "template_not_found"
	ErrCodePlaceholderNotFound ErrorCode = "placeholder_not_found"
	ErrCodeTransformFailed     ErrorCode = "transform_failed"
	ErrCodeRichContentNotFound ErrorCode = "rich_content_not_found"
)

// Fatal reports whether an error with this code aborts the pipeline run.
// Recoverable codes are enumerated; everything else defaults to fatal, which
// is the safe direction for unrecognized codes.
func (c ErrorCode) Fatal() bool {
	switch c {
	case ErrCodeTemplateNotFound,
		ErrCodePlaceholderNotFound,
		ErrCodeTransformFailed,
		ErrCodeRichContentNotFound:
		return false
	default:
		return true
	}
}

// AppError is the standard application error type. Stage boundaries return it
// so the orchestrator can distinguish fatal from degrade-in-place outcomes
// without an exception hierarchy.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error aborts the pipeline run.
func (e *AppError) Fatal() bool {
	return e.Code.Fatal()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsFatal classifies an arbitrary error. Non-AppError values are treated as
// fatal; nil is not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fatal()
	}
	return true
}
