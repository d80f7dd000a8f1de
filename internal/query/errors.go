package query

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes query errors.
type ErrorKind string

const (
	// KindBadPath indicates a malformed or unknown path or pattern.
	KindBadPath ErrorKind = "BAD_PATH"

	// KindInvalidName indicates an unknown component name.
	KindInvalidName ErrorKind = "INVALID_NAME"
)

// QueryError is returned for bad user input. The graph is never modified.
type QueryError struct {
	Kind    ErrorKind
	Input   string
	Message string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %q", e.Kind, e.Message, e.Input)
}

func badPath(input, msg string) error {
	return &QueryError{Kind: KindBadPath, Input: input, Message: msg}
}

// IsBadPath returns true if err is a QueryError of kind KindBadPath.
// Uses errors.As to handle wrapped errors.
func IsBadPath(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Kind == KindBadPath
}

// IsInvalidName returns true if err is a QueryError of kind KindInvalidName.
func IsInvalidName(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Kind == KindInvalidName
}
