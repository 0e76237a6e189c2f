package vts

import (
	"errors"
	"fmt"
)

// ErrorIDRequestRequiresAuthentication is the APIError ID returned when a
// request needs an authenticated session and the session is not.
const ErrorIDRequestRequiresAuthentication = 8

var (
	// ErrTransport matches every failure caused by the connection itself
	// rather than by the remote's answer.
	ErrTransport = errors.New("vts: transport failure")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("vts: client closed")

	errConnectionLost = errors.New("connection lost before response")
)

// TransportError describes a dial, write or read failure on the connection.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("vts %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) hold for every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// APIError is an error reply from the remote.
type APIError struct {
	RequestID string `json:"-"`
	ErrorID   int    `json:"errorID"`
	Message   string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("vts api error %d: %s", e.ErrorID, e.Message)
}

// IsUnauthenticated reports whether the remote rejected the request for a
// missing or invalid credential.
func (e *APIError) IsUnauthenticated() bool {
	return e.ErrorID == ErrorIDRequestRequiresAuthentication
}

// IsUnauthenticated reports whether err is an authentication rejection.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthenticated()
}

// IsTransport reports whether err came from the connection.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
