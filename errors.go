package klingkit

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/klingkit/jwt"
)

var (
	// ErrInvalidCredential is returned before any network call when the credential pair or
	// gateway token is missing or unusable.
	ErrInvalidCredential = jwt.ErrInvalidCredential
	// ErrInvalidConfig is returned by [Config.Validate] and [Builder.Build].
	ErrInvalidConfig = errors.New("invalid client configuration")
	// ErrInvalidRequest is returned when a request body fails local validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownOperation is returned for operation names missing from the routing table.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrTransport is returned when the HTTP exchange itself failed.
	ErrTransport = errors.New("transport failure")
	// ErrTimeout is returned alongside [ErrTransport] when the request deadline elapsed.
	ErrTimeout = errors.New("request timed out")
	// ErrRemote is matched by every [*APIError].
	ErrRemote = errors.New("remote api error")
	// ErrMalformedResponse is matched by every [*MalformedResponseError].
	ErrMalformedResponse = errors.New("malformed response")
	// ErrResponseTooLarge is returned with [ErrMalformedResponse] when the body exceeds
	// Config.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
)

// APIError is a well-formed JSON response that did not report success.
type APIError struct {
	Operation  Operation
	StatusCode int
	Code       int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: http %d code %d: %s (request_id %s)", e.Operation, e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: http %d code %d: %s", e.Operation, e.StatusCode, e.Code, e.Message)
}

// Unwrap lets errors.Is match [ErrRemote].
func (e *APIError) Unwrap() error { return ErrRemote }

// MalformedResponseError is a response whose body could not be decoded as the JSON envelope.
// Raw holds the payload verbatim, or its first Config.MaxResponseBytes when the body was
// too large.
type MalformedResponseError struct {
	Operation  Operation
	StatusCode int
	Raw        []byte
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: http %d: %v: %v", e.Operation, e.StatusCode, ErrMalformedResponse, e.Err)
}

// Unwrap exposes both [ErrMalformedResponse] and the decoder error.
func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

type transportError struct {
	op      Operation
	timeout bool
	err     error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrTransport, e.err)
}

func (e *transportError) Unwrap() []error {
	if e.timeout {
		return []error{ErrTransport, ErrTimeout, e.err}
	}
	return []error{ErrTransport, e.err}
}
