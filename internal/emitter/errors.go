package emitter

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Emit once Close has been called.
	ErrClosed = errors.New("emitter: closed")
	// ErrSendBufferFull is returned by Emit when the topic's send buffer holds MaxBuffered payloads.
	ErrSendBufferFull = errors.New("emitter: send buffer full")
)

// EncodeError reports a value the codec could not represent. The value was not queued.
type EncodeError struct {
	Topic string
	Err   error
}

// Error implements error.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("emitter: encode message for %s: %v", e.Topic, e.Err)
}

// Unwrap returns the codec error.
func (e *EncodeError) Unwrap() error { return e.Err }
