package bitmap

import "fmt"

// Kind classifies a failure into the taxonomy spec.md §7 describes.
type Kind int

const (
	// KindInvalid covers bad magic, unsupported format variants,
	// malformed headers, inconsistent dimensions, out-of-range palette
	// indices, and too-many-colours at save time.
	KindInvalid Kind = iota
	// KindTruncated covers a read returning fewer bytes than required.
	KindTruncated
	// KindIO covers an underlying open/read/write/seek failure.
	KindIO
	// KindResourceExhausted covers allocation failure and dimensions
	// exceeding Config.MaxDimension / Config.MaxPixels.
	KindResourceExhausted
	// KindUnsupported covers a format disabled or not registered.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid input"
	case KindTruncated:
		return "truncated input"
	case KindIO:
		return "i/o failure"
	case KindResourceExhausted:
		return "resource exhausted"
	case KindUnsupported:
		return "unsupported feature"
	default:
		return "unknown"
	}
}

// CodecError is the concrete error type the dispatch layer (Load, Save,
// Decode, EncodeExt and their variants) returns; codec packages return
// plain wrapped errors, which the dispatch layer classifies and wraps
// in a CodecError. It carries enough context (Op, Format) for a caller to
// log something actionable, and wraps the underlying error so
// errors.Is/errors.As keep working through it.
type CodecError struct {
	Kind   Kind
	Format string // a registered Format.Name ("bmp", "ppm", ...), "palette", or ""
	Op     string // e.g. "decode header", "read palette"
	Err    error
}

func (e *CodecError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Format, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Format, e.Op, e.Kind, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// newErr builds a *CodecError, wrapping err with %w semantics.
func newErr(format, op string, kind Kind, err error) error {
	return &CodecError{Kind: kind, Format: format, Op: op, Err: err}
}

// lastError is the process-wide "last error" string spec.md §5 and §7
// call for. It is a plain (non-atomic) global by design: the spec
// explicitly describes it as "not reentrant", matching the original C
// global `SET_ERROR`/`get_error`. Concurrent Load/Save calls from
// multiple goroutines will race on it; that is documented behaviour,
// not a bug to fix here.
var lastError error

func setLastError(err error) {
	lastError = err
}

// GetError returns the message of the most recent Load/Save failure,
// or "" if none has occurred (or it was cleared). It is a thin
// compatibility shim over the Go-idiomatic error returns every
// function already gives you directly; prefer checking the returned
// error.
func GetError() string {
	if lastError == nil {
		return ""
	}
	return lastError.Error()
}

// ClearError resets the last-error state.
func ClearError() {
	lastError = nil
}
