package transport

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyConnected = errors.New("transport already connected")
	ErrNotConnected     = errors.New("transport not connected")
	// ErrConnectionClosed is returned from Connect when Disconnect interrupts
	// the handshake.
	ErrConnectionClosed = errors.New("transport closed")
	// ErrReconnectExhausted marks the terminal failure after every reconnect
	// attempt failed.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrMissingUserID      = errors.New("identity is missing a user id")
)

// ConnectionError reports a failed handshake or a lost channel.
type ConnectionError struct {
	Reason     string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *ConnectionError) Error() string {
	msg := e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{Reason: reason, Cause: cause, Retryable: retryable}
}

// IsRetryable reports whether err is worth another connection attempt.
// Errors that are not ConnectionErrors are treated as transient.
func IsRetryable(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Retryable
	}
	return err != nil
}

// DecodeError reports an inbound frame that could not be decoded. The frame
// is dropped and the read loop continues.
type DecodeError struct {
	Reason string
	Frame  []byte
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "failed to decode inbound message: " + e.Reason
	}
	return fmt.Sprintf("failed to decode inbound message: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
