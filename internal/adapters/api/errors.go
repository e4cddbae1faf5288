package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// maxErrorBody bounds the response text kept on a RequestError.
const maxErrorBody = 512

// RequestError is returned when the API answers with a non-2xx status.
type RequestError struct {
	Op         string
	StatusCode int
	Status     string // status text, e.g. "Not Found"
	Body       string // best-effort response text, truncated
}

// Error renders "404 Not Found - body".
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, e.Status)
	if e.Body != "" {
		msg += " - " + e.Body
	}
	return msg
}

// NetworkError wraps a transport failure (refused, DNS, timeout).
type NetworkError struct {
	Op  string
	URL string
	Err error
}

// Error returns the underlying transport message.
func (e *NetworkError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a RequestError with the given status.
func IsStatus(err error, code int) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == code
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func newRequestError(op string, resp *http.Response, body []byte) *RequestError {
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = resp.Status
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &RequestError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Status:     text,
		Body:       strings.TrimSpace(string(body)),
	}
}
