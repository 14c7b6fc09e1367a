// Package errors turns failures from the backend client, the speech engine
// and the UI into categorized, localized errors. Classification happens once,
// at the boundary nearest the failure; everything downstream consumes a
// *ProcessedError.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Machine codes carried by transport failures.
const (
	CodeNetwork       = "NETWORK_ERROR"
	CodeRequestFailed = "REQUEST_FAILED"
	CodeTimeout       = "TIMEOUT"
)

// Coder is implemented by errors that carry a machine code.
type Coder interface {
	ErrorCode() string
}

// APIError is a failure reported by the backend client. Code is either one of
// the transport codes or HTTP_<status>.
type APIError struct {
	Code    string `json:"code"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
	Path    string `json:"path,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil && (e.Message == "" || !strings.Contains(e.Message, e.Cause.Error())) {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap provides access to the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the machine code.
func (e *APIError) ErrorCode() string {
	return e.Code
}

// HTTPCode formats the machine code for an HTTP status.
func HTTPCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}

// NewHTTPError creates the error for a non-2xx response.
func NewHTTPError(status int, message string) *APIError {
	return &APIError{Code: HTTPCode(status), Status: status, Message: message}
}

// NewNetworkError wraps a transport failure that never reached the server.
func NewNetworkError(cause error) *APIError {
	return &APIError{Code: CodeNetwork, Message: "network request failed", Cause: cause}
}

// NewTimeoutError wraps a request that ran out of time.
func NewTimeoutError(cause error) *APIError {
	return &APIError{Code: CodeTimeout, Message: "request timed out", Cause: cause}
}

// NewRequestFailedError wraps a request that could not be built or whose
// response could not be read.
func NewRequestFailedError(message string, cause error) *APIError {
	return &APIError{Code: CodeRequestFailed, Message: message, Cause: cause}
}

// StackTracer is implemented by errors that captured their own stack.
type StackTracer interface {
	StackTrace() []string
}

// PanicError carries a value recovered from a panic along with the stack of
// the goroutine that panicked.
type PanicError struct {
	Value interface{}
	Stack []string
}

// NewPanicError captures the current stack. Call it from the deferred
// function that recovered value.
func NewPanicError(value interface{}) *PanicError {
	return &PanicError{Value: value, Stack: captureStackTrace(3)}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func (e *PanicError) StackTrace() []string {
	return e.Stack
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) []string {
	var traces []string
	for i := skip; i < skip+16; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		funcName := "unknown"
		if fn != nil {
			funcName = fn.Name()
		}

		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}

		traces = append(traces, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return traces
}
