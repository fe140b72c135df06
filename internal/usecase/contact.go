package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/apperror"
	"portfolio-backend/pkg/email"
	"portfolio-backend/pkg/logger"
)

// ContactConfig identifies the site owner and the relay account used as sender
type ContactConfig struct {
	FromEmail    string // relay account, used as the envelope sender
	OwnerName    string
	OwnerMailbox string // fixed admin inbox
	Now          func() time.Time
}

type contactUsecase struct {
	sender email.Sender
	cfg    ContactConfig
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(sender email.Sender, cfg ContactConfig) domain.ContactUsecase {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &contactUsecase{
		sender: sender,
		cfg:    cfg,
	}
}

// SendContactMessage sends the admin notification, then the visitor confirmation.
// Only the admin notification decides the outcome: a failed confirmation is
// logged and reported through ContactReceipt.ConfirmationSent.
func (uc *contactUsecase) SendContactMessage(ctx context.Context, msg *domain.ContactMessage) (*domain.ContactReceipt, error) {
	if msg == nil || strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Email) == "" ||
		strings.TrimSpace(msg.Subject) == "" || strings.TrimSpace(msg.Message) == "" {
		return nil, apperror.BadRequest("All fields are required.")
	}

	if uc.sender == nil {
		return nil, apperror.ServiceUnavailable("Contact service temporarily unavailable", errors.New("email service is not configured"))
	}

	log := logger.Log.With("request_id", requestID(ctx), "sender_email", msg.Email)

	data := email.ContactEmailData{
		SenderName:  strings.TrimSpace(msg.Name),
		SenderEmail: strings.TrimSpace(msg.Email),
		Subject:     strings.TrimSpace(msg.Subject),
		Message:     strings.TrimSpace(msg.Message),
		SubmittedAt: uc.cfg.Now(),
		OwnerName:   uc.cfg.OwnerName,
	}
	attachments := make([]email.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		data.Attachments = append(data.Attachments, email.AttachmentInfo{Filename: a.Filename, Size: a.Size()})
		attachments = append(attachments, email.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	admin, err := uc.adminEmail(data, attachments)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	confirmation, err := uc.confirmationEmail(data)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := uc.sender.Send(ctx, admin); err != nil {
		log.Error("Admin notification failed", "error", err)
		return nil, apperror.New(http.StatusInternalServerError, "Failed to send email", err).WithDetails(err.Error())
	}
	log.Info("Admin notification sent", "attachments", len(attachments))

	receipt := &domain.ContactReceipt{
		Name:            data.SenderName,
		AttachmentCount: len(attachments),
	}

	// The owner has the message at this point; the confirmation is best effort.
	if err := uc.sender.Send(ctx, confirmation); err != nil {
		log.Warn("Confirmation email failed", "error", err)
		return receipt, nil
	}
	receipt.ConfirmationSent = true
	log.Info("Confirmation email sent")

	return receipt, nil
}

func (uc *contactUsecase) adminEmail(data email.ContactEmailData, attachments []email.Attachment) (*email.Email, error) {
	html, err := email.RenderAdminNotification(data)
	if err != nil {
		return nil, err
	}
	return &email.Email{
		From:        email.Address{Name: data.SenderName, Email: uc.cfg.FromEmail},
		To:          []email.Address{{Email: uc.cfg.OwnerMailbox}},
		ReplyTo:     &email.Address{Name: data.SenderName, Email: data.SenderEmail},
		Subject:     email.AdminSubject(data),
		HTML:        html,
		Attachments: attachments,
	}, nil
}

// confirmationEmail never carries the visitor's files back to them
func (uc *contactUsecase) confirmationEmail(data email.ContactEmailData) (*email.Email, error) {
	html, err := email.RenderConfirmation(data)
	if err != nil {
		return nil, err
	}
	return &email.Email{
		From:    email.Address{Name: uc.cfg.OwnerName, Email: uc.cfg.FromEmail},
		To:      []email.Address{{Name: data.SenderName, Email: data.SenderEmail}},
		Subject: email.ConfirmationSubject,
		HTML:    html,
	}, nil
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(domain.KeyRequestID).(string)
	return id
}
