package relay

import (
	"errors"
	"fmt"
)

// ErrInvalidUpstreamBody is returned when a 2xx buffered body is not JSON.
var ErrInvalidUpstreamBody = errors.New("upstream returned a non-JSON body")

// UpstreamError is a non-2xx answer from the backend.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// TransportError covers connection failures and timeouts.
type TransportError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream %s timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream %s unreachable: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
