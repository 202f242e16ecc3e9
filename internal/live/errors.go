package live

import (
	"errors"
	"fmt"
)

// ErrDuplicateFunction is matched by errors.Is for a Register call whose
// name is already taken.
var ErrDuplicateFunction = errors.New("function already registered")

// Error represents a malformed expression or registry misuse.
//
// Missing data never produces an Error; it evaluates to null rows.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Function names the offending function, if any.
	Function string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// CodeUnknownFunction indicates a call to an unregistered name.
	CodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"

	// CodeArityMismatch indicates the wrong number of arguments.
	CodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// CodeArgumentType indicates an argument of the wrong form, such as a
	// computed value where a constant is required.
	CodeArgumentType ErrorCode = "ARGUMENT_TYPE"

	// CodeDuplicateFunction indicates a second registration of a name.
	CodeDuplicateFunction ErrorCode = "DUPLICATE_FUNCTION"

	// CodeInvalidExpression indicates a structurally malformed tree.
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (function=%s)", e.Code, e.Message, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrDuplicateFunction) hold for duplicate
// registrations.
func (e *Error) Is(target error) bool {
	return target == ErrDuplicateFunction && e.Code == CodeDuplicateFunction
}

func hasCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsUnknownFunction reports whether err is an unknown-function error.
// Uses errors.As to handle wrapped errors.
func IsUnknownFunction(err error) bool {
	return hasCode(err, CodeUnknownFunction)
}

// IsArityMismatch reports whether err is an arity error.
func IsArityMismatch(err error) bool {
	return hasCode(err, CodeArityMismatch)
}

// IsArgumentType reports whether err is an argument-type error.
func IsArgumentType(err error) bool {
	return hasCode(err, CodeArgumentType)
}

// IsInvalidExpression reports whether err is a structural error.
func IsInvalidExpression(err error) bool {
	return hasCode(err, CodeInvalidExpression)
}

func newUnknownFunctionError(name string) *Error {
	return &Error{
		Code:     CodeUnknownFunction,
		Function: name,
		Message:  "no function registered under this name",
	}
}

func newArityError(d Descriptor, got int) *Error {
	lo, hi := d.Arity()
	want := fmt.Sprintf("%d", lo)
	switch {
	case hi < 0:
		want = fmt.Sprintf("at least %d", lo)
	case hi != lo:
		want = fmt.Sprintf("%d to %d", lo, hi)
	}
	return &Error{
		Code:     CodeArityMismatch,
		Function: d.Name,
		Message:  fmt.Sprintf("takes %s arguments, got %d", want, got),
		Details: map[string]string{
			"got":  fmt.Sprintf("%d", got),
			"want": want,
		},
	}
}

func newArgumentTypeError(function string, index int, msg string) *Error {
	return &Error{
		Code:     CodeArgumentType,
		Function: function,
		Message:  fmt.Sprintf("argument %d: %s", index, msg),
		Details:  map[string]string{"index": fmt.Sprintf("%d", index)},
	}
}
