package tracefile

import (
	"errors"
	"fmt"
)

// TruncatedError reports a stream that ended in the middle of a record.
// It is fatal: nothing after Offset can be decoded.
type TruncatedError struct {
	// Offset is the number of bytes consumed when the stream ran out.
	Offset int64

	// Record is the 1-based index of the record being decoded.
	Record int64

	// Field names the field that could not be completed.
	Field string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("trace truncated at offset %d (record %d, reading %s)", e.Offset, e.Record, e.Field)
}

// UnknownTagError reports a tag byte outside the protocol, which usually
// means the tracer and reader disagree on protocol version.
type UnknownTagError struct {
	Tag    byte
	Offset int64
	Record int64
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown trace tag %d at offset %d (record %d)", e.Tag, e.Offset, e.Record)
}

// IsTruncated returns true if err is or wraps a TruncatedError.
func IsTruncated(err error) bool {
	var te *TruncatedError
	return errors.As(err, &te)
}

// IsUnknownTag returns true if err is or wraps an UnknownTagError.
func IsUnknownTag(err error) bool {
	var ue *UnknownTagError
	return errors.As(err, &ue)
}

// errNUL is returned by the Writer for strings that cannot be framed.
var errNUL = errors.New("string contains NUL byte")
