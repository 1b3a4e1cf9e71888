package backend

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// StatusError is a non-2xx answer from the backend. Message carries the
// human-readable text from the response body, when there is one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{StatusCode: code, Message: decodeMessage(body)}
}

// StatusCode returns the backend HTTP status carried by err, or 0 when err is
// not a StatusError (for example a transport failure).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 that survived the refresh retry.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// UserMessage picks the text shown to the user for err. Client errors that
// carry a message are surfaced verbatim; transport failures and everything
// else get fallback.
func UserMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.Message != "" {
		return se.Message
	}
	return fallback
}
