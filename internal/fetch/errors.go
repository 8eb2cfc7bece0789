package fetch

import (
	"errors"
	"fmt"
)

// ErrInvalidJSON is returned when a 2xx response body is not JSON.
var ErrInvalidJSON = errors.New("fetch: response body is not valid JSON")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, body)
}
