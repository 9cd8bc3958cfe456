package rougeerr

import (
	"fmt"
	"time"
)

// Kind enumerates the error taxonomy from the specification.
type Kind int

const (
	// None indicates success. The zero Kind, never wrapped in an Error.
	None Kind = iota

	// OpenError means a device/socket/file could not be opened.
	OpenError
	// Timeout means a timed wait expired without completion.
	Timeout
	// SizeRange means a requested transaction size fell outside
	// [minAccess, maxAccess] of the attached Slave.
	SizeRange
	// AxisError means a buffer or write returned a non-zero hardware error bit.
	AxisError
	// VerifyMismatch means a read-after-write check diverged.
	VerifyMismatch
	// RangeError means a Variable write violated its declared min/max.
	RangeError
	// Canceled means the operation was aborted by shutdown.
	Canceled
	// Unsupported is the default Slave rejection, and also covers invalid
	// Variable encodings.
	Unsupported
	// ProtocolError means a malformed frame, a bad header size, or a
	// socket reconnect discard.
	ProtocolError
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case OpenError:
		return "open_error"
	case Timeout:
		return "timeout"
	case SizeRange:
		return "size_range"
	case AxisError:
		return "axis_error"
	case VerifyMismatch:
		return "verify_mismatch"
	case RangeError:
		return "range_error"
	case Canceled:
		return "canceled"
	case Unsupported:
		return "unsupported"
	case ProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the concrete error type carried on Transactions and surfaced
// from Frame/Buffer error bits. Use errors.As to recover structured fields.
type Error struct {
	Kind Kind
	Msg  string

	// Path/Mask apply to OpenError.
	Path string
	Mask uint64

	// Elapsed applies to Timeout.
	Elapsed time.Duration

	// Offset/Want/Got apply to VerifyMismatch.
	Offset int
	Want   byte
	Got    byte

	// Min/Max/Value apply to RangeError.
	Min, Max, Value int64

	wrapped error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("rouge: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("rouge: %s", e.Kind)
}

// Unwrap lets errors.Is/errors.As see through to a wrapped cause.
func (e *Error) Unwrap() error { return e.wrapped }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &Error{Kind: Timeout}) matches any Timeout error. Kind
// itself is not an error; to read it, use errors.As or KindOf below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, wrapped: err}
}

// NewOpenError builds an OpenError carrying the path and attempted mask.
func NewOpenError(path string, mask uint64, cause error) *Error {
	e := wrap(OpenError, fmt.Sprintf("could not open %s (mask=0x%x)", path, mask), cause)
	e.Path, e.Mask = path, mask
	return e
}

// NewTimeout builds a Timeout carrying the elapsed budget.
func NewTimeout(elapsed time.Duration) *Error {
	e := wrap(Timeout, fmt.Sprintf("timed out after %s", elapsed), nil)
	e.Elapsed = elapsed
	return e
}

// NewSizeRange builds a SizeRange error for a transaction size outside bounds.
func NewSizeRange(size, min, max uint) *Error {
	return wrap(SizeRange, fmt.Sprintf("size %d outside [%d,%d]", size, min, max), nil)
}

// NewAxisError builds an AxisError from a hardware-reported error code.
func NewAxisError(code uint32) *Error {
	return wrap(AxisError, fmt.Sprintf("hardware error bits 0x%x", code), nil)
}

// NewVerifyMismatch builds a VerifyMismatch carrying offset and the
// expected/actual bytes.
func NewVerifyMismatch(offset int, want, got byte) *Error {
	e := wrap(VerifyMismatch, fmt.Sprintf("byte %d: want 0x%02x got 0x%02x", offset, want, got), nil)
	e.Offset, e.Want, e.Got = offset, want, got
	return e
}

// NewRangeError builds a RangeError for a Variable write outside [min,max].
func NewRangeError(value, min, max int64) *Error {
	e := wrap(RangeError, fmt.Sprintf("value %d outside [%d,%d]", value, min, max), nil)
	e.Min, e.Max, e.Value = min, max, value
	return e
}

// NewCanceled builds a Canceled error, optionally wrapping the cause
// (typically context.Canceled).
func NewCanceled(cause error) *Error {
	return wrap(Canceled, "operation aborted by shutdown", cause)
}

// NewUnsupported builds an Unsupported error with a free-form reason.
func NewUnsupported(reason string) *Error {
	return wrap(Unsupported, reason, nil)
}

// NewProtocolError builds a ProtocolError with a free-form reason.
func NewProtocolError(reason string, cause error) *Error {
	return wrap(ProtocolError, reason, cause)
}

// KindOf extracts the Kind from err, returning None if err is nil and
// Unsupported if err is a non-nil error of a foreign type (this matches
// the default Slave's rejection policy: anything we cannot classify is
// treated as unsupported rather than silently swallowed).
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Unsupported
}
