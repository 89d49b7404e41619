package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/submit"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (action rejected, catalog unreachable, delivery failed, scenarios failed)
	ExitCommandError = 2 // Command error (bad arguments, invalid config, submission disabled)
)

// Error codes reported in JSON error responses, next to the
// CATALOG_UNAVAILABLE and DELIVERY_FAILED codes of the typed engine errors.
const (
	CodeRejected     = "REJECTED"
	CodeDisabled     = "SUBMISSION_DISABLED"
	CodeScenarios    = "SCENARIOS_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Classify maps an engine error to its response code and exit code.
func Classify(err error) (string, int) {
	var se *engine.SyncError
	if errors.As(err, &se) {
		return string(se.Code), ExitFailure
	}
	var de *submit.DeliveryError
	if errors.As(err, &de) {
		return string(de.Code), ExitFailure
	}
	switch {
	case errors.Is(err, submit.ErrDisabled):
		return CodeDisabled, ExitCommandError
	case errors.Is(err, engine.ErrNotLoggedIn), errors.Is(err, engine.ErrNoCatalog):
		return CodeInvalidState, ExitFailure
	case errors.Is(err, engine.ErrUnknownChapter),
		errors.Is(err, engine.ErrUnknownQuestion),
		errors.Is(err, engine.ErrUnknownExercise),
		errors.Is(err, engine.ErrUnknownVideo):
		return CodeNotFound, ExitFailure
	}
	return CodeRejected, ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // CATALOG_UNAVAILABLE, DELIVERY_FAILED, REJECTED...
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Emit writes data as the JSON payload, or text in text mode.
func (f *OutputFormatter) Emit(data interface{}, text string) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	return f.Success(text)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError carrying its exit code. In
// text mode nothing is written: the error reaches stderr through main.
// A delivery failure adds the key of the pending record to the details.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := Classify(err)
	details := map[string]string{"error": err.Error()}
	var de *submit.DeliveryError
	if errors.As(err, &de) {
		details["pending_key"] = de.Key
	}
	if f.Format == "json" {
		_ = f.Error(code, message, details)
	}
	return WrapExitError(exit, message, err)
}
