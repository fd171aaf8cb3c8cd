package encode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed run.
type Kind string

// Error kinds. ProbeUnavailable is informational: it is logged, never
// returned from Run.
const (
	KindEngineNotFound   Kind = "ENGINE_NOT_FOUND"
	KindInputNotFound    Kind = "INPUT_NOT_FOUND"
	KindInvalidBezelSpec Kind = "INVALID_BEZEL_SPEC"
	KindEncodeFailed     Kind = "ENCODE_FAILED"
	KindProbeUnavailable Kind = "PROBE_UNAVAILABLE"
	KindCanceled         Kind = "CANCELED"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrEngineNotFound   = &Error{Kind: KindEngineNotFound}
	ErrInputNotFound    = &Error{Kind: KindInputNotFound}
	ErrInvalidBezelSpec = &Error{Kind: KindInvalidBezelSpec}
	ErrEncodeFailed     = &Error{Kind: KindEncodeFailed}
	ErrCanceled         = &Error{Kind: KindCanceled}
)

// Error is a run failure.
type Error struct {
	Kind       Kind
	Pass       int    // encoder pass for KindEncodeFailed, else 0
	Message    string // human-readable summary
	Diagnostic string // engine stderr, verbatim
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == KindEncodeFailed {
		diag := strings.TrimSpace(e.Diagnostic)
		if diag == "" {
			diag = "No details."
		}
		b.WriteString(". ")
		b.WriteString(diag)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// NewError creates an error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func encodeFailed(pass, exitCode int, diagnostic string) *Error {
	return &Error{
		Kind:       KindEncodeFailed,
		Pass:       pass,
		Message:    fmt.Sprintf("ffmpeg pass %d failed (code %d)", pass, exitCode),
		Diagnostic: diagnostic,
	}
}

func canceled(pass int, cause error) *Error {
	msg := "run canceled"
	if pass > 0 {
		msg = fmt.Sprintf("run canceled during pass %d", pass)
	}
	return &Error{Kind: KindCanceled, Pass: pass, Message: msg, Cause: cause}
}

// KindOf returns the kind of err, or "" if it is not a run error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return ""
}

// Diagnostic returns the engine diagnostic carried by err, if any.
func Diagnostic(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Diagnostic
	}
	return ""
}
