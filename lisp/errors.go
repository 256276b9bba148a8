package lisp

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrorKind categorizes a [*Error] into one of the five kinds spec section
// 7 requires implementers to surface as distinct categories.
type ErrorKind uint8

const (
	// KindParser covers failures raised while reading source text.
	KindParser ErrorKind = iota
	// KindCompiler covers failures raised while compiling a parsed form.
	KindCompiler
	// KindLanguage covers failures raised by the environment or VM itself.
	KindLanguage
	// KindRuntime covers errors explicitly raised from user code via
	// (error ...).
	KindRuntime
	// KindInterop covers failures from host-reflection primitives.
	KindInterop
)

// String names an error kind for diagnostics.
func (k ErrorKind) String() string {
	switch k {
	case KindParser:
		return "parser"
	case KindCompiler:
		return "compiler"
	case KindLanguage:
		return "language"
	case KindRuntime:
		return "runtime"
	case KindInterop:
		return "interop"
	default:
		return "unknown"
	}
}

// Error is the one error type used across all five kinds from spec
// section 7: a message, an optional wrapped cause, and structured
// attributes for logging. It implements both error and slog.LogValuer, the
// same shape the ambient log package is built to consume.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
	Attrs []slog.Attr
}

// newError constructs a bare sentinel error of the given kind and message.
func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the same sentinel (matched by kind and
// message), so callers can write errors.Is(err, lisp.ErrStackUnderflow).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}

	return e.Kind == t.Kind && e.Msg == t.Msg
}

// Wrap returns a copy of e with cause set, preserving e's kind, message,
// and attributes.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Cause: cause, Attrs: append([]slog.Attr(nil), e.Attrs...)}
}

// With returns a copy of e with the given attributes appended, for
// contextual detail added at the raise site (e.g. the offending symbol
// name or instruction offset).
func (e *Error) With(attrs ...slog.Attr) *Error {
	return &Error{
		Kind:  e.Kind,
		Msg:   e.Msg,
		Cause: e.Cause,
		Attrs: append(append([]slog.Attr(nil), e.Attrs...), attrs...),
	}
}

// LogValue implements slog.LogValuer, letting a Logger render an *Error as
// a structured group instead of a flat string.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.Attrs)+2)
	attrs = append(attrs, slog.String("kind", e.Kind.String()), slog.String("msg", e.Msg))

	if e.Cause != nil {
		attrs = append(attrs, slog.Any("cause", e.Cause))
	}

	attrs = append(attrs, e.Attrs...)

	return slog.GroupValue(attrs...)
}

// Sentinel errors, one per failure mode enumerated across spec sections
// 4.1, 4.2, 4.3, and 7. Raise sites call .With(...)/.Wrap(...) to attach
// context; errors.Is against these bare values still matches.
var (
	ErrUnterminatedString      = newError(KindParser, "unterminated string")
	ErrUnexpectedCloseParen    = newError(KindParser, "unexpected close paren or brace")
	ErrUnquoteOutsideBackquote = newError(KindParser, "unquote outside backquote")
	ErrUnknownPackagePrefix    = newError(KindParser, "unknown package prefix")
	ErrReadInput               = newError(KindParser, "failed to read input")

	ErrWrongArgCount       = newError(KindCompiler, "wrong argument count to special form")
	ErrInvalidLambdaParams = newError(KindCompiler, "invalid lambda parameter list")
	ErrUnresolvedLabel     = newError(KindCompiler, "unresolved jump label")
	ErrInvalidSetTarget    = newError(KindCompiler, "invalid set! target")

	ErrStackUnderflow        = newError(KindLanguage, "stack underflow")
	ErrRunawayPC             = newError(KindLanguage, "runaway program counter")
	ErrUnknownOpcode         = newError(KindLanguage, "unknown opcode")
	ErrBadJumpTarget         = newError(KindLanguage, "bad jump target")
	ErrPrimitiveTypeMismatch = newError(KindLanguage, "primitive type mismatch")
	ErrNotAClosure           = newError(KindLanguage, "jmp_closure target is not a closure")

	ErrUserError = newError(KindRuntime, "user error")

	ErrInteropMissingMember = newError(KindInterop, "missing member")
	ErrInteropArity         = newError(KindInterop, "interop arity mismatch")
)

// AsError unwraps err into a *lisp.Error, if it is (or wraps) one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}
