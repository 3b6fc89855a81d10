package catalog

import (
	"errors"
	"fmt"
)

// RemoteError is a non-2xx catalog response. Payload is the request body
// that was sent, kept for diagnostics.
type RemoteError struct {
	Op      string
	Status  int
	Body    string
	Payload []byte
}

func (e *RemoteError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: catalog responded with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: catalog responded with status %d: %s", e.Op, e.Status, body)
}

// RemoteTransientError is a timeout or connection failure. The operation may
// succeed when the whole harvest cycle is retried later.
type RemoteTransientError struct {
	Op  string
	Err error
}

func (e *RemoteTransientError) Error() string {
	return fmt.Sprintf("%s: catalog unreachable: %v", e.Op, e.Err)
}

func (e *RemoteTransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a RemoteTransientError.
func IsTransient(err error) bool {
	var transient *RemoteTransientError
	return errors.As(err, &transient)
}
