package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the extraction and analysis pipeline.
var (
	// ErrUnsupportedFormat is returned when the format hint is outside the
	// supported set (pdf, xlsx, csv, docx).
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrSourceNotFound is returned by a DocumentSource when the referenced
	// upload does not exist.
	ErrSourceNotFound = errors.New("claim source file not found")

	// ErrSourceUnreadable is returned by a DocumentSource on I/O failure.
	ErrSourceUnreadable = errors.New("claim source file unreadable")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoActiveModel is returned by a ModelStore when no trained fraud
	// model is currently active.
	ErrNoActiveModel = errors.New("no active model available")
)

// ValidationError carries one business-rule violation found on an extracted
// claim. Validators collect these exhaustively rather than short-circuiting.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ExtractionError wraps a hard (input-class) extraction failure with the
// format that was being parsed.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
