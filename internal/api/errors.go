package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any RequestError with a 401 or 403 status.
var ErrUnauthorized = errors.New("unauthorized")

// RequestError is returned for a non-2xx response or a transport failure.
// Status is 0 when no response was received.
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *RequestError) Is(target error) bool {
	return target == ErrUnauthorized && isUnauthorized(e.Status)
}

func isUnauthorized(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
