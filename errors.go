package ptcow

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated means the data ended before a value could be read in full.
	ErrTruncated = errors.New("unexpected end of data")
	// ErrMalformed means a value was read but its contents make no sense.
	ErrMalformed = errors.New("malformed data")
	// ErrUnsupportedVersion means the file is an old PxTone revision (V1-V4)
	// that this package does not read.
	ErrUnsupportedVersion = errors.New("unsupported old PxTone version")
	// ErrFormatNewer means the file claims a revision newer than we know.
	ErrFormatNewer = errors.New("format newer than supported")
	// ErrAntiOperation is returned for files that carry the antiOPER tag,
	// which marks them as not-to-be-opened.
	ErrAntiOperation = errors.New("anti operation")
)

// DecodeError is returned when the binary data could not be decoded. It
// carries the byte offset where decoding failed and, when known, the chunk
// tag and field being read at the time.
type DecodeError struct {
	Offset int
	Tag    string
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Tag != "" && e.Field != "":
		return fmt.Sprintf("decode %q %s at offset %d: %v", e.Tag, e.Field, e.Offset, e.Err)
	case e.Tag != "":
		return fmt.Sprintf("decode %q at offset %d: %v", e.Tag, e.Offset, e.Err)
	default:
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError is returned when the data was structurally well-formed but
// semantically inconsistent, e.g. an event referencing a voice that does not
// exist.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// VoiceError reports that a voice could not be turned into playable samples.
// Units referencing the voice render silence; the song as a whole still plays.
type VoiceError struct {
	Index int
	Err   error
}

func (e *VoiceError) Error() string {
	return fmt.Sprintf("voice %d: %v", e.Index, e.Err)
}

func (e *VoiceError) Unwrap() error { return e.Err }
