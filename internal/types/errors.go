// Package types holds the error vocabulary shared by the engine packages.
package types

import "errors"

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindInvalidHexInput     ErrKind = iota + 1 // replacement text failed local validation
	ErrKindRowLengthExceeded                      // more bytes than a row can hold
	ErrKindOffsetOutOfRange                       // offset past the end of the file or range overflow
	ErrKindSourceUnavailable                      // I/O failed or timed out
	ErrKindPartialChunkFailure                    // one statistics chunk could not be read
	ErrKindNotFound                               // unknown file identity
	ErrKindStale                                  // response superseded by a newer request
	ErrKindState                                  // operation not valid in the current state
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidHexInput:
		return "InvalidHexInput"
	case ErrKindRowLengthExceeded:
		return "RowLengthExceeded"
	case ErrKindOffsetOutOfRange:
		return "OffsetOutOfRange"
	case ErrKindSourceUnavailable:
		return "SourceUnavailable"
	case ErrKindPartialChunkFailure:
		return "PartialChunkFailure"
	case ErrKindNotFound:
		return "NotFound"
	case ErrKindStale:
		return "Stale"
	case ErrKindState:
		return "State"
	}
	return "Unknown"
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so wrapped errors compare equal to
// the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels commonly returned by implementations.
var (
	ErrInvalidHexInput     = &Error{Kind: ErrKindInvalidHexInput, Msg: "invalid input"}
	ErrRowLengthExceeded   = &Error{Kind: ErrKindRowLengthExceeded, Msg: "row length exceeded"}
	ErrOffsetOutOfRange    = &Error{Kind: ErrKindOffsetOutOfRange, Msg: "offset out of range"}
	ErrSourceUnavailable   = &Error{Kind: ErrKindSourceUnavailable, Msg: "source unavailable"}
	ErrPartialChunkFailure = &Error{Kind: ErrKindPartialChunkFailure, Msg: "chunk read failed"}
	ErrNotFound            = &Error{Kind: ErrKindNotFound, Msg: "file not found"}
	ErrStale               = &Error{Kind: ErrKindStale, Msg: "stale response discarded"}
	ErrState               = &Error{Kind: ErrKindState, Msg: "invalid state"}
)

// New builds an error of the given kind.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
