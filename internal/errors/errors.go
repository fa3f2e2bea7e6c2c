// Package errors provides the closed set of error codes raised while
// interpreting statements and stepping a simulation.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that carries no code.
	CodeUnknown Code = "UNKNOWN"

	// Statement errors
	CodeSyntax              Code = "SYNTAX_ERROR"
	CodeUnknownOperator     Code = "UNKNOWN_OPERATOR"
	CodeNoSuchVariable      Code = "NO_SUCH_VARIABLE"
	CodeTypeMismatch        Code = "TYPE_MISMATCH"
	CodeIllegalVariableName Code = "ILLEGAL_VARIABLE_NAME"
	CodeIllegalScope        Code = "ILLEGAL_SCOPE"
	CodeArithmetic          Code = "ARITHMETIC_ERROR"

	// Simulation errors
	CodeNoCardToDraw     Code = "NO_CARD_TO_DRAW"
	CodeUnsatisfiable    Code = "UNSATISFIABLE"
	CodeDuplicateRole    Code = "DUPLICATE_ROLE"
	CodeUnknownNextCard  Code = "UNKNOWN_NEXT_CARD"
	CodeUnknownCard      Code = "UNKNOWN_CARD"
	CodeUnknownCharacter Code = "UNKNOWN_CHARACTER"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrSyntax              = &Error{Code: CodeSyntax}
	ErrUnknownOperator     = &Error{Code: CodeUnknownOperator}
	ErrNoSuchVariable      = &Error{Code: CodeNoSuchVariable}
	ErrTypeMismatch        = &Error{Code: CodeTypeMismatch}
	ErrIllegalVariableName = &Error{Code: CodeIllegalVariableName}
	ErrIllegalScope        = &Error{Code: CodeIllegalScope}
	ErrArithmetic          = &Error{Code: CodeArithmetic}
	ErrNoCardToDraw        = &Error{Code: CodeNoCardToDraw}
	ErrUnsatisfiable       = &Error{Code: CodeUnsatisfiable}
	ErrDuplicateRole       = &Error{Code: CodeDuplicateRole}
	ErrUnknownNextCard     = &Error{Code: CodeUnknownNextCard}
	ErrUnknownCard         = &Error{Code: CodeUnknownCard}
	ErrUnknownCharacter    = &Error{Code: CodeUnknownCharacter}
)

// Error is the domain error type. Line and Source attribute the error to
// the statement and the card or character being processed.
type Error struct {
	Code    Code
	Message string
	Line    string
	Source  string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	switch {
	case e.Source != "" && e.Line != "":
		return fmt.Sprintf("%s (in %s: %q)", msg, e.Source, e.Line)
	case e.Source != "":
		return fmt.Sprintf("%s (in %s)", msg, e.Source)
	case e.Line != "":
		return fmt.Sprintf("%s (line %q)", msg, e.Line)
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithSourceName sets the card or character a freshly built error belongs to.
func (e *Error) WithSourceName(source string) *Error {
	e.Source = source
	return e
}

// WithLine attributes err to a statement line unless it already names one.
// Errors without a code are returned unchanged.
func WithLine(err error, line string) error {
	var e *Error
	if !stderrors.As(err, &e) || e.Line != "" {
		return err
	}
	c := *e
	c.Line = line
	return &c
}

// WithSource attributes err to a card or character unless it already names one.
func WithSource(err error, source string) error {
	var e *Error
	if !stderrors.As(err, &e) || e.Source != "" {
		return err
	}
	c := *e
	c.Source = source
	return &c
}

// CodeOf returns the code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
