package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Unresolved references, invalid template, lint errors
	ExitCommandError = 2 // Command error (bad flags, unreadable file, database error)
)

// Error codes carried in the JSON envelope.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // File, variable or trace not found
	ErrCodeLoadFailed  = "E003" // Variable file could not be parsed
	ErrCodeBadContext  = "E004" // Variables do not form a valid context
	ErrCodeStore       = "E005" // Database error
	ErrCodeBadArgument = "E006" // Invalid flag or argument value

	ErrCodeSyntax     = "E101" // Template syntax error
	ErrCodeUnresolved = "E102" // Resolution left unresolved references
	ErrCodeLint       = "E103" // Lint found error-severity issues
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// reported is set when the formatter already printed the error, so
	// main must not print it again.
	reported bool
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Reported reports whether err was already written to the output.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // payload, also set on partial failure
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // resolution trace id
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// texter is implemented by payloads with their own terminal rendering.
type texter interface {
	Text(verbose bool) string
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.emit(CLIResponse{Status: "ok", Data: data})
}

// SuccessWithTrace is Success with a trace id in the envelope.
func (f *OutputFormatter) SuccessWithTrace(data any, traceID string) error {
	return f.emit(CLIResponse{Status: "ok", Data: data, TraceID: traceID})
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.emit(CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: code, Message: message, Details: details},
	})
}

// Fail prints a failure that still carries a payload (an unresolved
// template, a lint report) and returns the ExitError for the command.
func (f *OutputFormatter) Fail(exitCode int, code, message string, data any, traceID string) error {
	if err := f.emit(CLIResponse{
		Status:  "error",
		Data:    data,
		Error:   &CLIError{Code: code, Message: message},
		TraceID: traceID,
	}); err != nil {
		return err
	}
	return &ExitError{Code: exitCode, Message: message, reported: true}
}

// Abort prints an error without payload and returns it as an ExitError.
func (f *OutputFormatter) Abort(exitCode int, code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	if perr := f.Error(code, msg, nil); perr != nil {
		return perr
	}
	return &ExitError{Code: exitCode, Message: message, Err: err, reported: true}
}

func (f *OutputFormatter) emit(resp CLIResponse) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Data != nil {
		if t, ok := resp.Data.(texter); ok {
			fmt.Fprint(f.Writer, t.Text(f.Verbose))
		} else {
			fmt.Fprintln(f.Writer, resp.Data)
		}
	}
	if resp.Error != nil {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
		if f.Verbose && resp.Error.Details != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", resp.Error.Details)
		}
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
