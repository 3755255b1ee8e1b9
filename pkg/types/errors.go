package types

import (
	"errors"
	"fmt"
)

// Hook errors.
var (
	// ErrConfiguration marks a host contract violation. It is never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrPageNotFound is returned when a page is flagged as documentation but
	// no page data was supplied.
	ErrPageNotFound = fmt.Errorf("%w: page not found", ErrConfiguration)
	// ErrWriterMissing is returned when there is data to write but the host
	// supplied no JSONWriter.
	ErrWriterMissing = fmt.Errorf("%w: no JSON writer", ErrConfiguration)
)

// WriteError wraps a failure of the JSONWriter during OnAfterBuild.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
