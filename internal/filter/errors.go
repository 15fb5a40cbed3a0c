package filter

import (
	"errors"
	"fmt"
)

// Code categorizes parse errors.
type Code string

const (
	// CodeInputInvalid indicates the top-level input is not an object.
	CodeInputInvalid Code = "INPUT_INVALID"

	// CodeKeyInvalid indicates a name fails the syntax rule and no
	// allow-list entry overrides it.
	CodeKeyInvalid Code = "KEY_INVALID"

	// CodeKeyNotAllowed indicates a syntactically valid name outside the
	// schema's allow-list.
	CodeKeyNotAllowed Code = "KEY_NOT_ALLOWED"

	// CodeKeyPathInvalid indicates a relation segment that is not in the
	// caller-supplied relation list or does not resolve in the registry.
	CodeKeyPathInvalid Code = "KEY_PATH_INVALID"

	// CodeValueInvalid indicates an empty operand after normalization or
	// a validator rejection.
	CodeValueInvalid Code = "VALUE_INVALID"

	// CodeValueNormalization indicates an operand type the value grammar
	// cannot coerce.
	CodeValueNormalization Code = "VALUE_NORMALIZATION"

	// CodeRecursionLimit indicates relation nesting deeper than the
	// parser's configured maximum.
	CodeRecursionLimit Code = "RECURSION_LIMIT"
)

// Error represents a rejected input key or value.
//
// Errors are attributed to the input segment that caused them: the
// relation segment for path errors, the leaf name for field errors.
type Error struct {
	// Code identifies the error category.
	Code Code `json:"code"`

	// Key is the offending input segment.
	Key string `json:"key,omitempty"`

	// Path is the relation path under which Key was found ("" at the root).
	Path string `json:"path,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Key, e.Message)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is (or wraps) a parse Error with the given code.
func HasCode(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// at returns a copy of e attributed to key under path.
func (e *Error) at(key, path string) *Error {
	out := *e
	if out.Key == "" {
		out.Key = key
	}
	out.Path = path
	return &out
}

func newInputInvalidError(path string, input any) *Error {
	return &Error{
		Code:    CodeInputInvalid,
		Path:    path,
		Message: fmt.Sprintf("filter input must be an object, got %T", input),
	}
}

func newKeyInvalidError(key, path string) *Error {
	return &Error{
		Code:    CodeKeyInvalid,
		Key:     key,
		Path:    path,
		Message: "key is not a valid field name",
	}
}

func newKeyNotAllowedError(key, path string) *Error {
	return &Error{
		Code:    CodeKeyNotAllowed,
		Key:     key,
		Path:    path,
		Message: "key is not allowed",
	}
}

func newKeyPathInvalidError(key, path, reason string) *Error {
	return &Error{
		Code:    CodeKeyPathInvalid,
		Key:     key,
		Path:    path,
		Message: reason,
	}
}

func newValueInvalidError(message string) *Error {
	return &Error{
		Code:    CodeValueInvalid,
		Message: message,
	}
}

func newValueNormalizationError(err error) *Error {
	return &Error{
		Code:    CodeValueNormalization,
		Message: "value cannot be normalized",
		Err:     err,
	}
}

func newRecursionLimitError(key, path string, limit int) *Error {
	return &Error{
		Code:    CodeRecursionLimit,
		Key:     key,
		Path:    path,
		Message: fmt.Sprintf("relation nesting exceeds maximum depth %d", limit),
	}
}
