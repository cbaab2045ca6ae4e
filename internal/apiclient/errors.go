package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is returned when the request never produced an HTTP response
	ErrNetwork = errors.New("network failure")
	// ErrTimeout is returned when the request exceeded its time budget
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedResponse is returned when the body is not a JSON object
	ErrMalformedResponse = errors.New("malformed response")
)

// HTTPError is returned for any non-2xx response
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

// ApplicationError carries the message of a parsed body with ok:false
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// Message returns the text the backend attached to err, if any
func Message(err error) (string, bool) {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message, true
	}
	return "", false
}
