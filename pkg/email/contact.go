package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// ContactEmailData holds the data for contact form emails
type ContactEmailData struct {
	SenderName  string
	SenderEmail string
	Subject     string
	Message     string
	Attachments []AttachmentInfo
	SubmittedAt time.Time
	OwnerName   string
}

// AttachmentInfo is one line of the attachment manifest
type AttachmentInfo struct {
	Filename string
	Size     int
}

// SizeKB renders the size in KiB with one decimal, e.g. "12.5 KB"
func (a AttachmentInfo) SizeKB() string {
	return FormatSizeKB(a.Size)
}

// FormatSizeKB renders n bytes in KiB with one decimal
func FormatSizeKB(n int) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// Manifest returns the attachment lines shown in the admin notification
func (d ContactEmailData) Manifest() []string {
	lines := make([]string, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		lines = append(lines, fmt.Sprintf("%s (%s)", a.Filename, a.SizeKB()))
	}
	return lines
}

// Timestamp is the human readable submission time
func (d ContactEmailData) Timestamp() string {
	return d.SubmittedAt.Format("Monday, January 2, 2006 at 3:04 PM MST")
}

// ResponseWindow is the reply time promised in the confirmation
const ResponseWindow = "24-48 hours"

var funcs = template.FuncMap{
	// nl2br escapes s and turns line breaks into <br>
	"nl2br": func(s string) template.HTML {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		escaped := template.HTMLEscapeString(s)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	},
	"responseWindow": func() string { return ResponseWindow },
}

// adminEmailTemplate is the HTML template for the site owner notification
const adminEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Contact Form Submission</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #2563eb; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background: #f9f9f9; }
        .field { margin-bottom: 15px; }
        .label { font-weight: bold; color: #555; }
        .value { margin-top: 5px; }
        .message-box { background: white; padding: 15px; border-left: 4px solid #2563eb; margin-top: 10px; }
        .attachments { background: white; padding: 10px 15px; margin-top: 10px; }
        .footer { text-align: center; padding: 20px; color: #888; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>New message from your website</h1>
        </div>
        <div class="content">
            <div class="field">
                <div class="label">Name:</div>
                <div class="value">{{.SenderName}}</div>
            </div>
            <div class="field">
                <div class="label">Email:</div>
                <div class="value">{{.SenderEmail}}</div>
            </div>
            <div class="field">
                <div class="label">Subject:</div>
                <div class="value">{{.Subject}}</div>
            </div>
            <div class="field">
                <div class="label">Message:</div>
                <div class="message-box">{{nl2br .Message}}</div>
            </div>
            {{- with .Manifest}}
            <div class="field">
                <div class="label">Attachments ({{len .}}):</div>
                <div class="attachments">
                {{- range .}}
                    <div class="attachment">{{.}}</div>
                {{- end}}
                </div>
            </div>
            {{- end}}
            <div class="field">
                <div class="label">Submitted:</div>
                <div class="value">{{.Timestamp}}</div>
            </div>
        </div>
        <div class="footer">
            <p>This email was sent from the portfolio contact form.</p>
            <p>Replying to this email will reach {{.SenderEmail}} directly.</p>
        </div>
    </div>
</body>
</html>`

// confirmationEmailTemplate is sent back to the visitor
const confirmationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your message has been received</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .content { padding: 20px; background: #f9f9f9; }
        blockquote { background: white; padding: 15px; border-left: 4px solid #10b981; margin: 10px 0; }
        .footer { text-align: center; padding: 20px; color: #888; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="content">
            <p>Hello <b>{{.SenderName}}</b>,</p>
            <p>Thank you for contacting me. Here's a copy of your message:</p>
            <p><b>Subject:</b> {{.Subject}}</p>
            <blockquote>{{nl2br .Message}}</blockquote>
            {{- with .Attachments}}
            <p>{{len .}} file(s) were received with your message.</p>
            {{- end}}
            <p>I will reply within {{responseWindow}}.</p>
            <p>Best regards,<br>{{.OwnerName}}</p>
        </div>
        <div class="footer">
            <hr>
            <small>This email was sent automatically, please don't reply directly to this address.</small>
        </div>
    </div>
</body>
</html>`

var (
	adminTmpl        = template.Must(template.New("admin").Funcs(funcs).Parse(adminEmailTemplate))
	confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(confirmationEmailTemplate))
)

// AdminSubject is the subject line of the owner notification
func AdminSubject(data ContactEmailData) string {
	return fmt.Sprintf("New message from %s: %s", data.SenderName, data.Subject)
}

// ConfirmationSubject is the subject line of the visitor confirmation
const ConfirmationSubject = "Confirmation: Your message has been received"

// RenderAdminNotification renders the HTML body sent to the site owner
func RenderAdminNotification(data ContactEmailData) (string, error) {
	return render(adminTmpl, data)
}

// RenderConfirmation renders the HTML body sent to the visitor
func RenderConfirmation(data ContactEmailData) (string, error) {
	return render(confirmationTmpl, data)
}

func render(tmpl *template.Template, data ContactEmailData) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", errors.Join(ErrRenderFailed, err)
	}
	return body.String(), nil
}
