package errors

import (
	"errors"
	"fmt"
)

// Upload errors - Sentinel errors for use with errors.Is()
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrFileNotFound   = errors.New("local file not found")
	ErrFileUnreadable = errors.New("local file unreadable")
	ErrServerRejected = errors.New("upload rejected by server")
	ErrTransport      = errors.New("transport failure")
)

const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeFileNotFound   = "FILE_NOT_FOUND"
	CodeFileUnreadable = "FILE_UNREADABLE"
	CodeServerRejected = "SERVER_REJECTED"
	CodeTransport      = "TRANSPORT_FAILURE"
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func InvalidInput(msg string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: msg, Err: ErrInvalidInput}
}

func FileNotFound(path string) *AppError {
	return &AppError{Code: CodeFileNotFound, Message: path, Err: ErrFileNotFound}
}

// FileUnreadable keeps the underlying cause reachable through errors.As while
// still matching ErrFileUnreadable.
func FileUnreadable(path string, cause error) *AppError {
	return &AppError{Code: CodeFileUnreadable, Message: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, cause)}
}

func Transport(msg string, cause error) *AppError {
	return &AppError{Code: CodeTransport, Message: msg, Err: fmt.Errorf("%w: %w", ErrTransport, cause)}
}

// CodeOf returns the AppError code carried by err, or an empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
