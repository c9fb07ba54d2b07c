package converter

import (
	"errors"
	"fmt"
)

// Client-facing validation failures. Their text is returned to the caller as is.
var (
	ErrNoFilesProvided = errors.New("No files provided")
	ErrNoFileSelected  = &noFileSelectedError{}
)

// ErrEmptyOutput means a capability broke its contract of returning at least one file
var ErrEmptyOutput = errors.New("conversion produced no output files")

type noFileSelectedError struct{}

func (e *noFileSelectedError) Error() string { return "No file selected" }

// Is lets ErrNoFileSelected match ErrNoFilesProvided, since both mean nothing usable was uploaded
func (e *noFileSelectedError) Is(target error) bool { return target == ErrNoFilesProvided }

// DisallowedExtensionError rejects an upload whose extension is outside the allow-set
type DisallowedExtensionError struct {
	Filename string
}

func (e *DisallowedExtensionError) Error() string {
	return "Disallowed extension: " + e.Filename
}

// UnsupportedToolError rejects an operation identifier that is not registered
type UnsupportedToolError struct {
	Tool string
}

func (e *UnsupportedToolError) Error() string {
	return "Unsupported tool: " + e.Tool
}

// ConversionFailedError wraps any failure raised by a capability
type ConversionFailedError struct {
	Operation OperationID
	Cause     error
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
}

func (e *ConversionFailedError) Unwrap() error { return e.Cause }

// Message is the text surfaced to clients, which is the underlying cause verbatim
func (e *ConversionFailedError) Message() string {
	if e.Cause == nil {
		return "conversion failed"
	}
	return e.Cause.Error()
}

// IsValidation reports whether err is a client-caused rejection (HTTP 400)
func IsValidation(err error) bool {
	var disallowed *DisallowedExtensionError
	var unsupported *UnsupportedToolError
	return errors.Is(err, ErrNoFilesProvided) ||
		errors.As(err, &disallowed) ||
		errors.As(err, &unsupported)
}
