package engine

import (
	"errors"
	"fmt"
)

// Action errors. Every rejected action leaves the state untouched.
var (
	ErrStopped         = errors.New("engine stopped")
	ErrNotLoggedIn     = errors.New("no student logged in")
	ErrInvalidProfile  = errors.New("name and class are required")
	ErrNoCatalog       = errors.New("catalog not synced")
	ErrStaleCatalog    = errors.New("catalog belongs to another class")
	ErrUnknownChapter  = errors.New("unknown chapter")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrUnknownVideo    = errors.New("unknown video")
	ErrQuizSubmitted   = errors.New("quiz already submitted")
	ErrQuizIncomplete  = errors.New("quiz has unanswered questions")
	ErrInvalidAnswer   = errors.New("answer does not fit the question")
	ErrNotApplicable   = errors.New("chapter has no such resource")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// ErrorCode categorizes engine errors surfaced to the user.
type ErrorCode string

// ErrCodeCatalogUnavailable indicates the catalog could not be fetched.
const ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"

// SyncError reports a failed catalog fetch. Reconciliation did not run and
// the state is exactly as before the attempt; the caller may retry.
type SyncError struct {
	Code    ErrorCode
	ClassID string
	Err     error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: cannot load catalog for class %q: %v", e.Code, e.ClassID, e.Err)
}

// Unwrap returns the fetch error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err is a SyncError.
// Uses errors.As to handle wrapped errors.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
