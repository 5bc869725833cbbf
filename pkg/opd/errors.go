package opd

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by the decoder. Every error returned by this package
// is a *FormatError wrapping exactly one of these, so callers can test with
// errors.Is.
var (
	ErrBadMagic           = errors.New("opd: bad magic")
	ErrInvalidHeader      = errors.New("opd: invalid header")
	ErrTruncated          = errors.New("opd: truncated")
	ErrMisalignedOffset   = errors.New("opd: misaligned frame offset")
	ErrInvalidFrameLength = errors.New("opd: invalid frame length")
	ErrTrailingBytes      = errors.New("opd: trailing bytes in final frame")
)

// FormatError describes a decode failure with enough context to locate it
type FormatError struct {
	Kind   error  // one of the Err* kinds above
	Pos    int    // absolute byte position in the input, -1 if unknown
	Frame  int    // frame index, -1 if the error is not frame specific
	Want   int    // expected count (bytes or samples), 0 if not applicable
	Got    int    // actual count
	Detail string // free form description
	Err    error  // underlying cause, if any
}

func (e *FormatError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Frame >= 0 {
		fmt.Fprintf(&sb, " (frame %d)", e.Frame)
	}
	if e.Pos >= 0 {
		fmt.Fprintf(&sb, " at 0x%X", e.Pos)
	}
	if e.Want != 0 || e.Got != 0 {
		fmt.Fprintf(&sb, ": want %d, got %d", e.Want, e.Got)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, pos int, detail string) *FormatError {
	return &FormatError{Kind: kind, Pos: pos, Frame: -1, Detail: detail}
}

func headerError(detail string, cause error) *FormatError {
	return &FormatError{Kind: ErrInvalidHeader, Pos: 8, Frame: -1, Detail: detail, Err: cause}
}

func truncatedError(pos, want, got int, detail string) *FormatError {
	return &FormatError{Kind: ErrTruncated, Pos: pos, Frame: -1, Want: want, Got: got, Detail: detail}
}

// rebase shifts the position of a FormatError produced against a sub-slice
// that starts at base in the original input
func rebase(err error, base int) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Pos >= 0 && fe.Kind != ErrInvalidHeader {
		fe.Pos += base
	}
	return err
}
