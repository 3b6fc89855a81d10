package coordinator

import "fmt"

// ValidationFailedError is returned when a record is not eligible for
// synchronization. No remote or local call has been made.
type ValidationFailedError struct {
	PreferredIdentifier string
	Err                 error
}

func (e *ValidationFailedError) Error() string {
	if e.PreferredIdentifier == "" {
		return fmt.Sprintf("record not eligible for sync: %v", e.Err)
	}
	return fmt.Sprintf("record %s not eligible for sync: %v", e.PreferredIdentifier, e.Err)
}

func (e *ValidationFailedError) Unwrap() error {
	return e.Err
}
