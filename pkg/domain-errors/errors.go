// Package dErrors provides code-classified domain errors.
//
// Services return these so transport layers can translate them into
// HTTP statuses without inspecting error strings. Stores return
// pkg/platform/sentinel errors instead; services translate at the
// boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks a single-field or single-row data rejection.
	CodeValidation Code = "validation_failed"
	// CodeDuplicateName marks a database name/slug collision.
	CodeDuplicateName Code = "duplicate_name"
	// CodeDuplicateField marks a field name collision within a database.
	CodeDuplicateField Code = "duplicate_field"
	// CodeUnsupportedFile marks an import file with an unusable extension.
	CodeUnsupportedFile Code = "unsupported_file_type"
	// CodeParse marks an import file that cannot be read at all.
	CodeParse Code = "parse_failed"
	// CodePermissionDenied marks an access-policy check failure.
	CodePermissionDenied Code = "permission_denied"
	// CodeNotFound marks a reference to a nonexistent record.
	CodeNotFound Code = "not_found"
	// CodeBadRequest marks malformed caller input outside field validation.
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a state conflict (e.g. invalid status transition).
	CodeConflict Code = "conflict"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// Wrapf attaches a code and formatted message to an underlying error.
func Wrapf(err error, code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message, defaulting to a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to an HTTP status for transport layers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeUnsupportedFile, CodeParse:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateName, CodeDuplicateField, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
