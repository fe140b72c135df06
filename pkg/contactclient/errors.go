package contactclient

import (
	"errors"
	"fmt"

	"portfolio-backend/pkg/security"
	"portfolio-backend/pkg/validation"
)

var (
	ErrAttachmentTooLarge       = security.ErrFileTooLarge
	ErrAttachmentTypeNotAllowed = security.ErrFileTypeNotAllowed

	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// RejectionError is returned when a file cannot be attached
type RejectionError struct {
	FileName string
	Reason   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s was not attached: %v", e.FileName, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// ValidationError carries the per-field messages of a rejected form
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid contact form: " + e.Fields.String()
}
