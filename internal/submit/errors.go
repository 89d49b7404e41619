package submit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSubmittable is returned when the chapter's work cannot be
	// submitted in its current state.
	ErrNotSubmittable = errors.New("work is not ready for submission")

	// ErrDisabled is returned when no submission endpoint is configured.
	ErrDisabled = errors.New("submission endpoint not configured")

	// ErrPendingNotFound is returned when retrying an unknown pending key.
	ErrPendingNotFound = errors.New("pending submission not found")
)

// ErrorCode categorizes submission errors.
type ErrorCode string

// ErrCodeDeliveryFailed indicates the sink never accepted the document.
const ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

// DeliveryError reports a submission that exhausted its attempts. The
// export document remains stored under Key.
type DeliveryError struct {
	Code      ErrorCode
	Key       string
	ChapterID string
	Attempts  int
	Err       error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: chapter %s not delivered after %d attempt(s), kept as %s: %v",
		e.Code, e.ChapterID, e.Attempts, e.Key, e.Err)
}

// Unwrap returns the last delivery error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError reports whether err is a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
