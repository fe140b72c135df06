package email

import (
	"context"
	"net/mail"
	"net/textproto"
)

// Sender delivers a fully-prepared Email. Implementations must be safe for
// concurrent use: every call is an independent send.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Address is a mailbox with an optional display name
type Address struct {
	Name  string
	Email string
}

// String formats the address per RFC 5322, encoding the name when needed
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	From        Address
	To          []Address
	ReplyTo     *Address
	Subject     string
	HTML        string
	Text        string            // optional plain text alternative
	Headers     map[string]string // extra headers, see ExtraHeaders
	Attachments []Attachment
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Recipients returns the bare envelope addresses of all To entries
func (e *Email) Recipients() []string {
	rcpts := make([]string, 0, len(e.To))
	for _, to := range e.To {
		rcpts = append(rcpts, to.Email)
	}
	return rcpts
}

// reservedHeaders are set from the Email fields and the MIME structure
var reservedHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Reply-To":                  true,
	"Sender":                    true,
	"Subject":                   true,
	"Date":                      true,
	"Message-Id":                true,
	"Mime-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
}

// ExtraHeaders returns Headers with canonical keys, minus the reserved ones.
// Addressing and MIME headers always come from the Email fields.
func (e *Email) ExtraHeaders() map[string]string {
	if len(e.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Headers))
	for k, v := range e.Headers {
		key := textproto.CanonicalMIMEHeaderKey(k)
		if reservedHeaders[key] {
			continue
		}
		out[key] = v
	}
	return out
}

func (e *Email) validate() error {
	switch {
	case e.From.Email == "":
		return ErrNoSender
	case len(e.To) == 0:
		return ErrNoRecipient
	case e.Subject == "":
		return ErrNoSubject
	case e.HTML == "":
		return ErrNoContent
	}
	return nil
}
