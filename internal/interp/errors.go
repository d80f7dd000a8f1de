package interp

import (
	"context"
	"errors"
	"fmt"
)

// IngestError reports an ingestion that stopped before the end of its trace.
// Everything applied before Record is committed.
type IngestError struct {
	// Trace is the name the trace was ingested under.
	Trace string

	// Offset is the decompressed byte offset reached.
	Offset int64

	// Record is the 1-based index of the first record not applied. Every
	// record before it is committed.
	Record int64

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: record %d at offset %d: %v", e.Trace, e.Record, e.Offset, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}

// IsCancelled returns true if ingestion stopped because its context ended.
// Uses errors.As to handle wrapped errors.
func IsCancelled(err error) bool {
	var ie *IngestError
	if !errors.As(err, &ie) {
		return false
	}
	return errors.Is(ie.Err, context.Canceled) || errors.Is(ie.Err, context.DeadlineExceeded)
}
