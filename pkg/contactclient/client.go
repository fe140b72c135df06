package contactclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout = 30 * time.Second

	FallbackErrorMessage = "Failed to send email. Please try again later."
	NetworkErrorMessage  = "Network error. Please check your connection and try again."

	maxResponseBytes = 1 << 20
)

// Kind tells server-reported failures apart from transport failures
type Kind string

const (
	KindNone           Kind = ""
	KindRequestFailed  Kind = "request_failed"  // 4xx
	KindDispatchFailed Kind = "dispatch_failed" // 5xx and other non-2xx
	KindNetwork        Kind = "network"
)

// SubmissionResult is the outcome of one Submit call
type SubmissionResult struct {
	State            State
	StatusCode       int
	RecipientName    string
	AttachmentCount  int
	ConfirmationSent bool
	ErrorMessage     string
	ErrorDetail      string
	Kind             Kind
}

// Form is one contact form instance. Submissions are serialized per Form.
// Build it with NewForm.
type Form struct {
	Name    string
	Email   string
	Subject string
	Message string

	Attachments *Collector
	Status      *Status

	inFlight atomic.Bool
}

// NewForm returns an empty form. Nil arguments get defaults.
func NewForm(attachments *Collector, status *Status) *Form {
	if attachments == nil {
		attachments = NewCollector()
	}
	if status == nil {
		status = NewStatus()
	}
	return &Form{Attachments: attachments, Status: status}
}

// Set fills the text fields and marks the form as being composed
func (f *Form) Set(name, email, subject, message string) {
	f.Name, f.Email, f.Subject, f.Message = name, email, subject, message
	if f.Status.State() == StateIdle {
		_ = f.Status.Transition(StateComposing)
	}
}

// Submission returns the trimmed field values, as validated and sent
func (f *Form) Submission() domain.ContactSubmission {
	return domain.ContactSubmission{
		Name:    f.Name,
		Email:   f.Email,
		Subject: f.Subject,
		Message: f.Message,
	}.Trimmed()
}

// Reset clears the fields and the attachments
func (f *Form) Reset() {
	f.Name, f.Email, f.Subject, f.Message = "", "", "", ""
	if f.Attachments != nil {
		f.Attachments.Clear()
	}
}

// InFlight reports whether a submission is in progress
func (f *Form) InFlight() bool {
	return f.inFlight.Load()
}

// Client posts contact forms to the mail endpoint
type Client struct {
	endpoint string
	http     *http.Client
	notifier Notifier
	validate *validator.Validate
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithValidator(v *validator.Validate) Option {
	return func(c *Client) { c.validate = v }
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validate == nil {
		c.validate = validation.New()
	}
	return c
}

type serverResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details"`
	Data    struct {
		Name             string `json:"name"`
		AttachmentCount  int    `json:"attachment_count"`
		ConfirmationSent bool   `json:"confirmation_sent"`
	} `json:"data"`
}

// Submit validates the form and posts it once. A second call while the first
// is running returns ErrSubmissionInFlight without sending anything. Validation
// failures return *ValidationError and send nothing. Server and network
// failures are reported in the result, not as an error. The form is cleared
// only after a confirmed success.
func (c *Client) Submit(ctx context.Context, form *Form) (*SubmissionResult, error) {
	if !form.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer form.inFlight.Store(false)

	sub := form.Submission()
	if errs := validation.ValidateContact(c.validate, sub); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	body, contentType, count, err := buildBody(sub, form.Attachments)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if err := form.Status.begin(); err != nil {
		return nil, err
	}

	logger.Log.Debug("Submitting contact form", "endpoint", c.endpoint, "attachments", count)
	result := c.do(req, sub)

	if err := form.Status.Transition(result.State); err != nil {
		return nil, err
	}

	switch {
	case result.State == StateSuccess:
		form.Reset()
		notify(c.notifier, LevelSuccess, "Email sent successfully!", "I'll get back to you within 24-48 hours.")
	case result.Kind == KindNetwork:
		notify(c.notifier, LevelError, "Network error", "Please check your connection and try again.")
	default:
		notify(c.notifier, LevelError, "Failed to send email", result.ErrorMessage)
	}
	return result, nil
}

func (c *Client) do(req *http.Request, sub domain.ContactSubmission) *SubmissionResult {
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Log.Warn("Contact submission failed", "error", err)
		return &SubmissionResult{
			State:        StateError,
			ErrorMessage: NetworkErrorMessage,
			ErrorDetail:  err.Error(),
			Kind:         KindNetwork,
		}
	}
	defer resp.Body.Close()

	var payload serverResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result := &SubmissionResult{
			State:            StateSuccess,
			StatusCode:       resp.StatusCode,
			RecipientName:    payload.Data.Name,
			AttachmentCount:  payload.Data.AttachmentCount,
			ConfirmationSent: payload.Data.ConfirmationSent,
		}
		if result.RecipientName == "" {
			result.RecipientName = sub.Name
		}
		return result
	}

	result := &SubmissionResult{
		State:        StateError,
		StatusCode:   resp.StatusCode,
		ErrorMessage: FallbackErrorMessage,
		Kind:         KindDispatchFailed,
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		result.Kind = KindRequestFailed
	}
	if decodeErr == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			result.ErrorMessage = msg
		}
		result.ErrorDetail = payload.Details
	}
	return result
}

// buildBody writes the four text fields, then the attachments in collector order
func buildBody(sub domain.ContactSubmission, attachments *Collector) (*bytes.Buffer, string, int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"name", sub.Name},
		{"email", sub.Email},
		{"subject", sub.Subject},
		{"message", sub.Message},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", 0, err
		}
	}

	count := 0
	if attachments != nil {
		n, err := attachments.WriteParts(w)
		if err != nil {
			return nil, "", 0, err
		}
		count = n
	}

	if err := w.Close(); err != nil {
		return nil, "", 0, err
	}
	return &buf, w.FormDataContentType(), count, nil
}
