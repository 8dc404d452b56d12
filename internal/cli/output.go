package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // clean run
	ExitFailure      = 1 // errors were found, or a scenario failed
	ExitCommandError = 2 // the command itself could not run
)

// Error codes reported in CLIError.Code. Every command shares this table.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeConfig       = "E002" // config file unreadable or invalid
	ErrCodeRegistry     = "E003" // node registry directory failed to load
	ErrCodePatterns     = "E004" // pattern corpus failed to load
	ErrCodeNotFound     = "E005" // file, pattern, run or node type
	ErrCodeInvalidInput = "E006" // source is not valid UTF-8
	ErrCodeHistory      = "E007"
	ErrCodeInvalidURI   = "E008"
	ErrCodeValidation   = "E100" // the workflow has error diagnostics
)

// CLIResponse is the JSON envelope every command writes in --format json.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON envelopes.
// Diagnostics for the user (VerboseLog) go to ErrWriter so they never
// interleave with a JSON document on Writer.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data as an "ok" envelope, or prints it with %v in text
// mode. Commands with their own text rendering call it only for JSON.
func (f *OutputFormatter) Success(data interface{}) error {
	if !f.JSON() {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.write(CLIResponse{Status: "ok", Data: data})
}

// Failure writes an "error" envelope that still carries a payload, such
// as a validation result. In text mode the caller renders data itself.
func (f *OutputFormatter) Failure(code, message string, data interface{}) error {
	if !f.JSON() {
		return nil
	}
	return f.write(CLIResponse{Status: "error", Data: data, Error: &CLIError{Code: code, Message: message}})
}

// Error reports a command error.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.JSON() {
		return f.write(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message, Details: details}})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a line under --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) write(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// ExitError carries the process exit code for a failed command. Commands
// return one after they have already reported the failure to the user.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// exitCode maps a command error to a process exit code. Errors that are
// not ExitErrors come from cobra itself (bad flags, unknown commands).
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// fail reports err under code and returns it as a command error.
func fail(f *OutputFormatter, code string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
