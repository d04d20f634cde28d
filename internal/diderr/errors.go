// Package diderr defines the error taxonomy shared across the duplicate
// image detection service: a small set of error kinds, each with a stable
// numeric code used in "<CMD> FAILED, code <n>" protocol replies.
package diderr

import "fmt"

// Kind identifies the broad category of a failure, independent of its
// specific cause. Kinds are used to pick the numeric code surfaced on the
// wire and to decide whether a failure should ever abort the server loop
// (it never should; see Kind.Code and the dispatcher).
type Kind int

const (
	// IoFailure covers socket read/write, accept, or file open errors.
	IoFailure Kind = iota + 1
	// DecodeFailure covers image decode/resize failures, including a
	// source image smaller than the configured miniature size.
	DecodeFailure
	// PersistenceFailure covers DAO calls that failed or returned an
	// unexpected shape.
	PersistenceFailure
	// OutOfMemory covers any allocation failure.
	OutOfMemory
	// ProtocolFailure covers malformed commands, unknown commands, or a
	// command line that exceeded the per-connection buffer.
	ProtocolFailure
	// CapacityFailure covers a full connection table.
	CapacityFailure
	// InternalInvariant covers a violated invariant, e.g. an SBD pair
	// referencing a missing index entry. Always logged, never returned
	// to a client as anything but a generic failure.
	InternalInvariant
)

// Code returns the stable numeric code emitted in "<CMD> FAILED, code <n>"
// reply lines for this kind.
func (k Kind) Code() int {
	return int(k)
}

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "IoFailure"
	case DecodeFailure:
		return "DecodeFailure"
	case PersistenceFailure:
		return "PersistenceFailure"
	case OutOfMemory:
		return "OutOfMemory"
	case ProtocolFailure:
		return "ProtocolFailure"
	case CapacityFailure:
		return "CapacityFailure"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "Unknown"
	}
}

// Error is a typed failure carrying a Kind and an underlying cause.
// Implements error and supports errors.Is/errors.As via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error of the same Kind, so errors.Is
// matches any *Error of that kind regardless of message or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, returning
// InternalInvariant for anything else so that unexpected errors still map
// to a defined reply code instead of panicking the dispatcher.
func KindOf(err error) Kind {
	var derr *Error
	if asError(err, &derr) {
		return derr.Kind
	}
	return InternalInvariant
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
