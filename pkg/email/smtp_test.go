package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayedMessage struct {
	from string
	to   []string
	data []byte
}

// relayBackend is an in-process SMTP relay that records every message
type relayBackend struct {
	mu       sync.Mutex
	messages []relayedMessage
	reject   map[string]bool // recipients refused with 550
	hold     chan struct{}   // when set, DATA waits on it before replying
}

func (b *relayBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &relaySession{backend: b}, nil
}

func (b *relayBackend) received() []relayedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]relayedMessage(nil), b.messages...)
}

type relaySession struct {
	backend *relayBackend
	from    string
	to      []string
}

func (s *relaySession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *relaySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.reject[to] {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "mailbox unavailable"}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *relaySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.backend.hold != nil {
		<-s.backend.hold
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.messages = append(s.backend.messages, relayedMessage{from: s.from, to: s.to, data: data})
	return nil
}

func (s *relaySession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *relaySession) Logout() error {
	return nil
}

func startRelay(t *testing.T) (*relayBackend, SMTPConfig) {
	t.Helper()

	backend := &relayBackend{reject: map[string]bool{}}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second
	server.AllowInsecureAuth = true
	server.MaxMessageBytes = 32 << 20

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	return backend, SMTPConfig{Host: host, Port: portNum}
}

func adminEmail() *Email {
	return &Email{
		From:    Address{Name: "Jane Visitor", Email: "relay@example.com"},
		To:      []Address{{Email: "owner@example.com"}},
		ReplyTo: &Address{Email: "jane@example.com"},
		Subject: "New message from Jane Visitor: Project inquiry",
		HTML:    "<p>Hello owner</p>",
		Attachments: []Attachment{
			{Filename: "notes.txt", ContentType: "text/plain; charset=utf-8", Content: []byte("some notes")},
			{Filename: "cv.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.7 fake")},
		},
	}
}

func TestSMTPSender_Send(t *testing.T) {
	t.Run("Should deliver a multipart message with attachments", func(t *testing.T) {
		relay, cfg := startRelay(t)
		sender := NewSMTPSender(cfg)

		require.NoError(t, sender.Send(context.Background(), adminEmail()))

		msgs := relay.received()
		require.Len(t, msgs, 1)
		assert.Equal(t, "relay@example.com", msgs[0].from)
		assert.Equal(t, []string{"owner@example.com"}, msgs[0].to)

		mr, err := mail.CreateReader(bytes.NewReader(msgs[0].data))
		require.NoError(t, err)

		subject, err := mr.Header.Subject()
		require.NoError(t, err)
		assert.Equal(t, "New message from Jane Visitor: Project inquiry", subject)

		replyTo, err := mr.Header.AddressList("Reply-To")
		require.NoError(t, err)
		require.Len(t, replyTo, 1)
		assert.Equal(t, "jane@example.com", replyTo[0].Address)

		from, err := mr.Header.AddressList("From")
		require.NoError(t, err)
		assert.Equal(t, "Jane Visitor", from[0].Name)

		var html string
		files := map[string]string{}
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)

			body, err := io.ReadAll(p.Body)
			require.NoError(t, err)

			switch h := p.Header.(type) {
			case *mail.InlineHeader:
				html = string(body)
			case *mail.AttachmentHeader:
				name, err := h.Filename()
				require.NoError(t, err)
				files[name] = string(body)
			}
		}

		assert.Equal(t, "<p>Hello owner</p>", html)
		assert.Equal(t, map[string]string{
			"notes.txt": "some notes",
			"cv.pdf":    "%PDF-1.7 fake",
		}, files)
	})

	t.Run("Should send a single part message without attachments", func(t *testing.T) {
		relay, cfg := startRelay(t)
		sender := NewSMTPSender(cfg)

		msg := &Email{
			From:    Address{Name: "Portfolio Owner", Email: "relay@example.com"},
			To:      []Address{{Name: "Jane Visitor", Email: "jane@example.com"}},
			Subject: "Confirmation: Your message has been received",
			HTML:    "<p>Thanks</p>",
		}
		require.NoError(t, sender.Send(context.Background(), msg))

		msgs := relay.received()
		require.Len(t, msgs, 1)
		assert.Equal(t, []string{"jane@example.com"}, msgs[0].to)

		mr, err := mail.CreateReader(bytes.NewReader(msgs[0].data))
		require.NoError(t, err)
		mediaType, _, err := mr.Header.ContentType()
		require.NoError(t, err)
		assert.Equal(t, "text/html", mediaType)
	})

	t.Run("Should surface the relay rejection", func(t *testing.T) {
		relay, cfg := startRelay(t)
		relay.reject["owner@example.com"] = true
		sender := NewSMTPSender(cfg)

		err := sender.Send(context.Background(), adminEmail())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSendFailed)
		assert.Contains(t, err.Error(), "mailbox unavailable")
		assert.Empty(t, relay.received())
	})

	t.Run("Should fail when the relay is unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().(*net.TCPAddr)
		require.NoError(t, ln.Close())

		sender := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: addr.Port})
		err = sender.Send(context.Background(), adminEmail())
		assert.ErrorIs(t, err, ErrSendFailed)
	})

	t.Run("Should not dial when the context is already done", func(t *testing.T) {
		relay, cfg := startRelay(t)
		sender := NewSMTPSender(cfg)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := sender.Send(ctx, adminEmail())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, relay.received())
	})

	t.Run("Should deliver an attachment of the maximum size", func(t *testing.T) {
		relay, cfg := startRelay(t)
		sender := NewSMTPSender(cfg)

		content := bytes.Repeat([]byte{0xA5}, 10*1024*1024)
		msg := adminEmail()
		msg.Attachments = []Attachment{{Filename: "scan.pdf", ContentType: "application/pdf", Content: content}}
		require.NoError(t, sender.Send(context.Background(), msg))

		msgs := relay.received()
		require.Len(t, msgs, 1)
		mr, err := mail.CreateReader(bytes.NewReader(msgs[0].data))
		require.NoError(t, err)

		var got []byte
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			if _, ok := p.Header.(*mail.AttachmentHeader); ok {
				got, err = io.ReadAll(p.Body)
				require.NoError(t, err)
			}
		}
		assert.Equal(t, len(content), len(got))
		assert.True(t, bytes.Equal(content, got))
	})

	t.Run("Should abort the session when the context expires", func(t *testing.T) {
		relay, cfg := startRelay(t)
		relay.hold = make(chan struct{})
		t.Cleanup(func() { close(relay.hold) })
		sender := NewSMTPSender(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := sender.Send(ctx, adminEmail())
		assert.ErrorIs(t, err, ErrSendFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("Should reject incomplete emails before dialing", func(t *testing.T) {
		sender := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1})

		assert.ErrorIs(t, sender.Send(context.Background(), &Email{From: Address{Email: "a@example.com"}}), ErrNoRecipient)
		assert.ErrorIs(t, sender.Send(context.Background(), &Email{}), ErrNoSender)
	})
}

func TestSMTPSender_BuildMessage_ExtraHeaders(t *testing.T) {
	msg := adminEmail()
	msg.Attachments = nil
	msg.Headers = map[string]string{
		"to":             "attacker@example.com",
		"Reply-To":       "attacker@example.com",
		"x-contact-form": "portfolio",
	}

	raw, err := NewSMTPSender(SMTPConfig{}).BuildMessage(msg)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "owner@example.com", to[0].Address)

	replyTo, err := mr.Header.AddressList("Reply-To")
	require.NoError(t, err)
	require.Len(t, replyTo, 1)
	assert.Equal(t, "jane@example.com", replyTo[0].Address)

	assert.Equal(t, "portfolio", mr.Header.Get("X-Contact-Form"))
}
