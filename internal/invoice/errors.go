package invoice

import (
	"errors"
	"fmt"
)

// Common invoice processing errors
var (
	// ErrExtractionFailure is returned when a document yields no text at all.
	ErrExtractionFailure = errors.New("no text could be extracted from the document")

	// ErrAmountNotFound marks a record whose amount fell back to 0.00.
	// It is reported as a warning, never returned from a build.
	ErrAmountNotFound = errors.New("no plausible invoice amount found")

	// ErrProcessingPanic is returned when a pipeline stage panics on a document.
	ErrProcessingPanic = errors.New("unexpected failure while processing document")
)

// ProcessingError wraps errors with the document and operation they belong to.
type ProcessingError struct {
	// Op is the operation that failed (e.g., "Extract", "Validate").
	Op string

	// File is the name of the document being processed.
	File string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s %s failed: %s: %v", e.Op, e.File, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s %s failed: %v", e.Op, e.File, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapProcessingError wraps err unless it already is a ProcessingError.
func WrapProcessingError(op, file string, err error, details string) error {
	if err == nil {
		return nil
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err
	}

	return &ProcessingError{
		Op:      op,
		File:    file,
		Err:     err,
		Details: details,
	}
}
