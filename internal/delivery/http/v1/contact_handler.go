package v1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"portfolio-backend/internal/delivery/http/response"
	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/apperror"
	"portfolio-backend/pkg/security"
	"portfolio-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const attachmentFieldPrefix = "attachment_"

type ContactHandler struct {
	contactUC domain.ContactUsecase
	validate  *validator.Validate
	maxMemory int64
}

// NewContactHandler registers the contact routes (public, no auth required)
func NewContactHandler(public *gin.RouterGroup, contactUC domain.ContactUsecase, validate *validator.Validate, maxMemory int64) *ContactHandler {
	handler := &ContactHandler{
		contactUC: contactUC,
		validate:  validate,
		maxMemory: maxMemory,
	}

	public.POST("/contact", handler.SubmitContact)
	return handler
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Send a message through the contact form. Files go in attachment_0, attachment_1, ... with no gaps.
// @Tags         contact
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        name          formData  string  true   "Visitor name (2-50 characters)"
// @Param        email         formData  string  true   "Visitor email"
// @Param        subject       formData  string  true   "Subject (5-100 characters)"
// @Param        message       formData  string  true   "Message (10-1000 characters)"
// @Param        attachment_0  formData  file    false  "First attachment"
// @Success      200  {object}  response.Response{data=domain.ContactReceipt}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var (
		msg domain.ContactMessage
		err error
	)

	if c.ContentType() == gin.MIMEJSON {
		err = h.bindJSON(c, &msg)
	} else {
		err = h.bindForm(c, &msg)
	}
	if err != nil {
		c.Error(err)
		return
	}

	if fieldErrs := validation.ValidateContact(h.validate, msg.ContactSubmission); len(fieldErrs) > 0 {
		c.Error(apperror.BadRequest("Invalid contact form").WithDetails(fieldErrs.String()))
		return
	}

	receipt, err := h.contactUC.SendContactMessage(c.Request.Context(), &msg)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Your message has been sent successfully!", receipt)
}

func (h *ContactHandler) bindJSON(c *gin.Context, msg *domain.ContactMessage) error {
	var fields map[string]*string
	if err := c.ShouldBindJSON(&fields); err != nil {
		return apperror.BadRequest("Invalid request body")
	}

	values := make(map[string]string, len(fields))
	for k, v := range fields {
		if v != nil {
			values[k] = *v
		}
	}
	return fillSubmission(&msg.ContactSubmission, func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

func (h *ContactHandler) bindForm(c *gin.Context, msg *domain.ContactMessage) error {
	req := c.Request
	err := req.ParseMultipartForm(h.maxMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := req.ParseForm(); err != nil {
			return apperror.BadRequest("Invalid form data")
		}
	case err != nil:
		return apperror.BadRequest("Invalid form data").WithDetails(err.Error())
	}
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}

	err = fillSubmission(&msg.ContactSubmission, func(key string) (string, bool) {
		vs, ok := req.PostForm[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	})
	if err != nil {
		return err
	}

	msg.Attachments, err = readAttachments(req.MultipartForm)
	if err != nil {
		return apperror.BadRequest("Invalid attachment").WithDetails(err.Error())
	}
	return nil
}

// fillSubmission reads the four required text fields; any absent or blank
// field fails the whole request before anything is sent
func fillSubmission(s *domain.ContactSubmission, get func(key string) (string, bool)) error {
	targets := []struct {
		key string
		dst *string
	}{
		{"name", &s.Name},
		{"email", &s.Email},
		{"subject", &s.Subject},
		{"message", &s.Message},
	}
	for _, t := range targets {
		v, ok := get(t.key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return apperror.BadRequest("All fields are required.")
		}
		*t.dst = v
	}
	return nil
}

// readAttachments probes attachment_0, attachment_1, ... and stops at the
// first missing index
func readAttachments(form *multipart.Form) ([]domain.Attachment, error) {
	if form == nil {
		return nil, nil
	}

	var attachments []domain.Attachment
	for i := 0; ; i++ {
		headers := form.File[fmt.Sprintf("%s%d", attachmentFieldPrefix, i)]
		if len(headers) == 0 {
			return attachments, nil
		}

		a, err := readAttachment(headers[0])
		if err != nil {
			return nil, fmt.Errorf("%s%d: %w", attachmentFieldPrefix, i, err)
		}
		attachments = append(attachments, a)
	}
}

func readAttachment(fh *multipart.FileHeader) (domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Attachment{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.Attachment{}, err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = security.DetectMIME(fh.Filename, content)
	}

	return domain.Attachment{
		Filename:    fh.Filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}
