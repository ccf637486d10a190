package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/depres/internal/compiler"
	"github.com/roach88/depres/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Resolution, validation or scenario failure
	ExitCommandError = 2 // Command error (invalid paths, unreadable config, database errors)
)

// ExitError carries the process exit code alongside the error.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that carry no
// code map to ExitFailure.
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

// OutputFormatter writes command results as JSON envelopes or plain text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool

	// PassID is stamped on every JSON envelope once a pass has run.
	PassID string
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	PassID string    `json:"pass_id,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // "E003", "AMBIGUOUS_REQUIREMENT", etc.
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(resp CLIResponse) error {
	resp.PassID = f.PassID
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data as an "ok" envelope, or prints it in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.json() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an "error" envelope, or an "Error [code]: message" line.
// Text mode prints details only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// ResolutionError reports a failed pass. The request that failed is
// always shown, in text mode as indented lines under the error.
func (f *OutputFormatter) ResolutionError(err error) error {
	var re *ir.ResolutionError
	if !errors.As(err, &re) {
		return f.Error(compiler.ErrCodeGeneric, err.Error(), nil)
	}

	details := map[string]any{}
	if re.Quantity.Capability != "" {
		details["quantity"] = re.Quantity.String()
	}
	if re.Consumer != "" {
		details["consumer"] = re.Consumer
	}
	if len(re.Candidates) > 0 {
		details["candidates"] = re.Candidates
	}

	if f.json() {
		if len(details) == 0 {
			return f.Error(string(re.Code), re.Message, nil)
		}
		return f.Error(string(re.Code), re.Message, details)
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", re.Code, re.Message)
	if q, ok := details["quantity"]; ok {
		fmt.Fprintf(f.Writer, "  requirement: %s\n", q)
	}
	if re.Consumer != "" {
		fmt.Fprintf(f.Writer, "  needed by:   %s\n", re.Consumer)
	}
	if len(re.Candidates) > 0 {
		fmt.Fprintf(f.Writer, "  candidates:  %s\n", strings.Join(re.Candidates, ", "))
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose. It goes to ErrWriter so
// JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
