package domain

import (
	"context"
	"strings"
)

// ContactSubmission represents the four text fields of the contact form
type ContactSubmission struct {
	Name    string `json:"name" form:"name" validate:"not_blank,min=2,max=50"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Subject string `json:"subject" form:"subject" validate:"not_blank,min=5,max=100"`
	Message string `json:"message" form:"message" validate:"not_blank,min=10,max=1000"`
}

// Trimmed returns the submission with surrounding whitespace removed from
// every field. Client and server both validate this form.
func (s ContactSubmission) Trimmed() ContactSubmission {
	return ContactSubmission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Subject: strings.TrimSpace(s.Subject),
		Message: strings.TrimSpace(s.Message),
	}
}

// Attachment is a file reconstructed from the multipart request
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the attachment length in bytes
func (a Attachment) Size() int {
	return len(a.Content)
}

// ContactMessage is a validated submission plus the files the server received
type ContactMessage struct {
	ContactSubmission
	Attachments []Attachment
}

// ContactReceipt describes what the server actually processed
type ContactReceipt struct {
	Name             string `json:"name"`
	AttachmentCount  int    `json:"attachment_count"`
	ConfirmationSent bool   `json:"confirmation_sent"`
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// SendContactMessage notifies the site owner and confirms receipt to the visitor
	SendContactMessage(ctx context.Context, msg *ContactMessage) (*ContactReceipt, error)
}
