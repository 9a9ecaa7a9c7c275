package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bomgraph/bomgraph/internal/result"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (validation errors, cycles, not found)
	ExitCommandError = 2 // Command error (bad flags, unreadable database or files)
)

// ExitError carries a specific exit code out of a command RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Non-ExitErrors map to
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders result envelopes as JSON or human-readable text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// Emit writes a result envelope in the configured format. A failed result
// is still rendered in full, then surfaced as an ExitFailure so the shell
// sees a non-zero status.
func (f *OutputFormatter) Emit(res result.Result) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return WrapExitError(ExitCommandError, "encoding output", err)
		}
	} else {
		f.emitText(res)
	}

	if !res.OK {
		message := "operation failed"
		if len(res.Errors) > 0 {
			message = res.Errors[0]
		}
		return NewExitError(ExitFailure, message)
	}
	return nil
}

func (f *OutputFormatter) emitText(res result.Result) {
	for _, warning := range res.Warnings {
		fmt.Fprintf(f.Writer, "warning: %s\n", warning)
	}
	if !res.OK {
		for _, msg := range res.Errors {
			fmt.Fprintf(f.Writer, "error: %s\n", msg)
		}
		return
	}
	encoded, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		fmt.Fprintf(f.Writer, "%v\n", res.Data)
		return
	}
	fmt.Fprintln(f.Writer, string(encoded))
}

// VerboseLog writes a diagnostic line when verbose mode is on. Goes to
// ErrWriter so JSON output on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
