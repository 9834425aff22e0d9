package netclient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL means the request URL could not be built.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidResponse covers transport failures and unreadable responses.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrUnauthorized means authentication failed and the single refresh
	// attempt was exhausted or impossible.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDecoding means a success response body could not be decoded.
	ErrDecoding = errors.New("response decoding failed")
)

// HTTPError is a non-2xx response without a structured error payload.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.Status)
}

// ServerError is a non-2xx response whose body carried a structured error
// message from the backend.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s (status %d)", e.Message, e.Status)
}
