// Package errcore implements the core's error taxonomy (spec.md §7):
// signature conflicts and type mismatches are ordinary returned errors;
// invariant violations and out-of-memory are programming-bug conditions
// that abort the process through the overridable Fatal hook. Fragment
// refusal (an HO oracle returning NOT_IN_FRAGMENT) is not an error at all
// and is represented elsewhere as a plain enum value, never as a CoreError.
package errcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a CoreError per the taxonomy in spec.md §7.
type Kind int

const (
	SignatureConflict Kind = iota
	TypeMismatch
	KindInvariantViolation
	KindOutOfMemory
)

func (k Kind) String() string {
	switch k {
	case SignatureConflict:
		return "signature conflict"
	case TypeMismatch:
		return "type mismatch"
	case KindInvariantViolation:
		return "invariant violation"
	case KindOutOfMemory:
		return "out of memory"
	default:
		return "unknown"
	}
}

// Code is the stable error code carried by a CoreError, following the
// teacher's ErrorCode split into named ranges.
type Code string

const (
	CodeSignatureArityConflict    Code = "E1001"
	CodeSignaturePredicateConflict Code = "E1002"
	CodeTypeMismatch              Code = "E1010"
	CodeInvariantViolation        Code = "E1020"
	CodeOutOfMemory               Code = "E1030"
)

// CoreError is a structured error carrying a Kind, a stable Code, a
// message, and optional diagnostic notes/help text.
type CoreError struct {
	Kind    Kind
	Code    Code
	Message string
	Notes   []string
	Help    string
	cause   error
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

// Unwrap exposes the stack-captured cause, if any, for errors.Is/As.
func (e *CoreError) Unwrap() error { return e.cause }

// WithNote appends a diagnostic note and returns the receiver for chaining.
func (e *CoreError) WithNote(note string) *CoreError {
	e.Notes = append(e.Notes, note)
	return e
}

// WithHelp sets the help text and returns the receiver for chaining.
func (e *CoreError) WithHelp(help string) *CoreError {
	e.Help = help
	return e
}

// SignatureConflictf builds a non-fatal signature-conflict error (e.g. a
// symbol re-declared with a different arity).
func SignatureConflictf(code Code, format string, args ...any) *CoreError {
	return &CoreError{Kind: SignatureConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeMismatchf builds a non-fatal type-mismatch error (e.g. binding a
// variable to a term of an incompatible sort).
func TypeMismatchf(format string, args ...any) *CoreError {
	return &CoreError{Kind: TypeMismatch, Code: CodeTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

// Fatal is invoked by InvariantViolation and OOM after constructing the
// CoreError. Invariant violations and OOM are bugs per spec.md §7: the core
// aborts. The default hook panics with the *CoreError itself; cmd/saturd
// does not replace it. An embedding process or a test may assign its own
// hook (errcore's own test installs one that records the error).
var Fatal = func(err *CoreError) {
	panic(err)
}

// InvariantViolation constructs and immediately raises (via Fatal) an
// invariant-violation error: an internal check failed and the embedding
// process cannot safely continue. The cause is wrapped with
// github.com/pkg/errors so the abort carries a captured stack.
func InvariantViolation(format string, args ...any) {
	err := &CoreError{
		Kind:    KindInvariantViolation,
		Code:    CodeInvariantViolation,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.Errorf(format, args...),
	}
	Fatal(err)
}

// OutOfMemory constructs and raises (via Fatal) an out-of-memory error
// wrapping cause with a captured stack.
func OutOfMemory(cause error) {
	err := &CoreError{
		Kind:    KindOutOfMemory,
		Code:    CodeOutOfMemory,
		Message: "out of memory",
		cause:   errors.Wrap(cause, "out of memory"),
	}
	Fatal(err)
}
