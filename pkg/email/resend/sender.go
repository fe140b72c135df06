package resend

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"

	"portfolio-backend/pkg/email"
)

// Sender implements email.Sender using the Resend API.
type Sender struct {
	client *resend.Client
}

// New creates a new Resend sender.
func New(apiKey string) *Sender {
	return &Sender{
		client: resend.NewClient(apiKey),
	}
}

// Send implements email.Sender.
func (s *Sender) Send(ctx context.Context, msg *email.Email) error {
	req := BuildRequest(msg)

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return errors.Join(email.ErrSendFailed, fmt.Errorf("resend: %w", err))
	}
	return nil
}

// BuildRequest converts an email into the Resend request shape
func BuildRequest(msg *email.Email) *resend.SendEmailRequest {
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.String())
	}

	req := &resend.SendEmailRequest{
		From:    msg.From.String(),
		To:      to,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.ExtraHeaders(),
	}
	if msg.ReplyTo != nil {
		req.ReplyTo = msg.ReplyTo.Email
	}

	if len(msg.Attachments) > 0 {
		req.Attachments = make([]*resend.Attachment, len(msg.Attachments))
		for i, a := range msg.Attachments {
			req.Attachments[i] = &resend.Attachment{
				Filename:    a.Filename,
				Content:     a.Content,
				ContentType: a.ContentType,
			}
		}
	}
	return req
}
