package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates a backing file or workspace entry does not exist.
	// Non-fatal: the caller decides whether to skip, create or report.
	ErrNotFound = errors.New("not found")

	// ErrParse indicates a persisted document or page has a malformed structure
	ErrParse = errors.New("malformed metadata")

	// ErrOutOfRange indicates a page order outside [0, size)
	ErrOutOfRange = errors.New("order out of range")

	// ErrIO indicates a file move, delete or write failed
	ErrIO = errors.New("i/o failure")

	// ErrCancelled indicates a background operation was cancelled or timed out
	ErrCancelled = errors.New("cancelled")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrServiceUnavailable indicates an external collaborator (OCR, exporter) is not configured or unreachable
	ErrServiceUnavailable = errors.New("service unavailable")
)
