package email

import "errors"

var (
	ErrNoSender    = errors.New("email must have a sender")
	ErrNoRecipient = errors.New("email must have at least one recipient")
	ErrNoSubject   = errors.New("email must have a subject")
	ErrNoContent   = errors.New("email must have HTML content")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("failed to render email template")

	// ErrSendFailed wraps every transport failure.
	ErrSendFailed = errors.New("failed to send email")
)
