package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed backend call.
type ErrorKind string

const (
	// KindTransport means the request never completed.
	KindTransport ErrorKind = "transport"
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus ErrorKind = "status"
	// KindDecode means the response body was not the expected JSON.
	KindDecode ErrorKind = "decode"
)

// Error is the normalized failure of a backend call. Its message is what the
// UI shows to the user.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		body := strings.TrimSpace(e.Body)
		if body == "" {
			return fmt.Sprintf("server returned %d", e.Status)
		}
		return fmt.Sprintf("server returned %d: %s", e.Status, body)
	case KindDecode:
		return fmt.Sprintf("unexpected response from %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 if none.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}
