package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig holds the relay connection parameters
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS instead of STARTTLS
	Username string
	Password string
}

// SMTPSender delivers email through an SMTP relay. It holds no connection
// state, so one instance can serve concurrent requests.
type SMTPSender struct {
	config SMTPConfig
	now    func() time.Time
}

// NewSMTPSender creates a sender for the given relay
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		config: cfg,
		now:    time.Now,
	}
}

// Addr returns host:port of the relay
func (s *SMTPSender) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Send implements Sender. The dial and the SMTP session are bound to ctx.
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	if err := email.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	msg, err := s.BuildMessage(email)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if err := s.deliver(ctx, email.From.Email, email.Recipients(), msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ErrSendFailed, ctxErr, err)
		}
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// deliver runs one SMTP session. Secure dials implicit TLS; otherwise the
// connection is upgraded with STARTTLS only when the relay offers it.
func (s *SMTPSender) deliver(ctx context.Context, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: s.config.Host}

	var (
		conn net.Conn
		err  error
	)
	if s.config.Secure {
		conn, err = (&tls.Dialer{Config: tlsConfig}).DialContext(ctx, "tcp", s.Addr())
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", s.Addr())
	}
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c := smtp.NewClient(conn)
	defer c.Close()

	if !s.config.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if s.config.Username != "" && s.config.Password != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.config.Username, s.config.Password)); err != nil {
			return err
		}
	}

	if err := c.SendMail(from, to, bytes.NewReader(msg)); err != nil {
		return err
	}
	return c.Quit()
}

// BuildMessage renders email as an RFC 5322 message. Without attachments the
// body is a single inline part; otherwise multipart/mixed.
func (s *SMTPSender) BuildMessage(email *Email) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetSubject(email.Subject)
	h.SetAddressList("From", []*mail.Address{{Name: email.From.Name, Address: email.From.Email}})
	h.SetAddressList("To", toMailAddresses(email.To))
	if email.ReplyTo != nil {
		h.SetAddressList("Reply-To", []*mail.Address{{Name: email.ReplyTo.Name, Address: email.ReplyTo.Email}})
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}
	for k, v := range email.ExtraHeaders() {
		h.Set(k, v)
	}

	var buf bytes.Buffer

	if len(email.Attachments) == 0 && email.Text == "" {
		h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, email.HTML); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if err := writeBody(mw, email); err != nil {
		return nil, err
	}
	for _, a := range email.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, fmt.Errorf("attachment %q: %w", a.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBody(mw *mail.Writer, email *Email) error {
	if email.Text == "" {
		var ih mail.InlineHeader
		ih.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		w, err := mw.CreateSingleInline(ih)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, email.HTML); err != nil {
			return err
		}
		return w.Close()
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return err
	}
	parts := []struct{ contentType, body string }{
		{"text/plain", email.Text},
		{"text/html", email.HTML},
	}
	for _, p := range parts {
		var ih mail.InlineHeader
		ih.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(ih)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return iw.Close()
}

func writeAttachment(mw *mail.Writer, a Attachment) error {
	mediaType, params, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		mediaType, params = "application/octet-stream", nil
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(mediaType, params)
	ah.SetFilename(a.Filename)

	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	if _, err := w.Write(a.Content); err != nil {
		return err
	}
	return w.Close()
}

func toMailAddresses(list []Address) []*mail.Address {
	out := make([]*mail.Address, 0, len(list))
	for _, a := range list {
		out = append(out, &mail.Address{Name: a.Name, Address: a.Email})
	}
	return out
}
