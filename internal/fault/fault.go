// Package fault defines the failure taxonomy shared by all services.
// Every aggregate and service operation returns one of these kinds instead
// of throwing; handlers map kinds to transport codes.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is an unexpected or storage failure.
	KindInternal Kind = iota
	// KindInvalid is malformed input, caught before touching storage.
	KindInvalid
	// KindNotFound means a referenced aggregate or sub-entity is absent.
	KindNotFound
	// KindForbidden means the operation is not permitted for this actor or user type.
	KindForbidden
	// KindConflict is an invariant violation against current state.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// ErrTokenReuse is the distinguished Conflict raised when a revoked refresh
// token is redeemed. Callers treat it as a security signal.
var ErrTokenReuse = &Error{Kind: KindConflict, Msg: "refresh token reuse detected"}

// Error carries a failure kind, a message, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, &Error{Kind: KindConflict}) and
// sentinel comparisons like ErrTokenReuse work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrTokenReuse {
		return e == ErrTokenReuse
	}
	return e.Kind == t.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Invalidf returns a KindInvalid error.
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Forbiddenf returns a KindForbidden error.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf returns a KindConflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Internalf returns a KindInternal error.
func Internalf(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns err annotated with the given kind and message. Returns nil when err is nil.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err. Non-fault errors are KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
