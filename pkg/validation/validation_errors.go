package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"portfolio-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps json field names to user-facing labels
var FieldLabels = map[string]string{
	"name":    "Name",
	"email":   "Email",
	"subject": "Subject",
	"message": "Message",
}

// FieldErrors maps a field name to its message. A missing key means the field passed.
type FieldErrors map[string]string

// Fields returns the failing field names in a stable order
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// String joins all messages, used for error details
func (fe FieldErrors) String() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe.Fields() {
		parts = append(parts, fe[f])
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs v against s and collects one message per failing field.
// Only the first failing rule of a field is reported.
func ValidateStruct(v *validator.Validate, s any) FieldErrors {
	errs := FieldErrors{}
	err := v.Struct(s)
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["_"] = err.Error()
		return errs
	}

	for _, e := range validationErrors {
		if _, seen := errs[e.Field()]; seen {
			continue
		}
		errs[e.Field()] = formatSingleError(e)
	}
	return errs
}

// ValidateContact checks the four text fields of a contact submission after
// trimming them
func ValidateContact(v *validator.Validate, s domain.ContactSubmission) FieldErrors {
	return ValidateStruct(v, s.Trimmed())
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required", "not_blank":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", label, param)
	case "email":
		return "Please enter a valid email address"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

func getFieldLabel(field string) string {
	if label, ok := FieldLabels[field]; ok {
		return label
	}
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
