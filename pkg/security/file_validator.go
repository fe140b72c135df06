package security

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAttachmentSize is the per-file ceiling (10 MiB)
const MaxAttachmentSize = 10 * 1024 * 1024

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum size")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
)

// DefaultAccept lists the accepted patterns, in the same syntax as an HTML
// accept attribute: "type/*", an exact MIME type, or a ".ext" extension
var DefaultAccept = []string{"image/*", "application/pdf", ".doc", ".docx", ".txt"}

// ArchiveAccept is added when the form also takes archives
var ArchiveAccept = []string{".zip", ".rar"}

// AttachmentPolicy decides whether a file may be attached
type AttachmentPolicy struct {
	MaxSize int64
	Accept  []string
}

// DefaultAttachmentPolicy returns the 10 MiB policy with DefaultAccept,
// optionally extended with archives
func DefaultAttachmentPolicy(allowArchives bool) AttachmentPolicy {
	accept := append([]string(nil), DefaultAccept...)
	if allowArchives {
		accept = append(accept, ArchiveAccept...)
	}
	return AttachmentPolicy{
		MaxSize: MaxAttachmentSize,
		Accept:  accept,
	}
}

// Check validates size and type. A size equal to MaxSize is accepted.
func (p AttachmentPolicy) Check(fileName string, size int64, mimeType string) error {
	if err := p.CheckSize(size); err != nil {
		return err
	}
	if !p.Accepts(fileName, mimeType) {
		return fmt.Errorf("%w: %s (%s)", ErrFileTypeNotAllowed, fileName, mimeType)
	}
	return nil
}

// CheckSize validates the size alone, before the content is read
func (p AttachmentPolicy) CheckSize(size int64) error {
	if size > p.MaxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, p.MaxSize)
	}
	return nil
}

// Accepts reports whether the file matches any accepted pattern
func (p AttachmentPolicy) Accepts(fileName, mimeType string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	mediaType := strings.ToLower(mimeType)
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mediaType = mt
	}

	for _, pattern := range p.Accept {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case strings.HasPrefix(pattern, "."):
			if ext == pattern {
				return true
			}
		case strings.HasSuffix(pattern, "/*"):
			if strings.HasPrefix(mediaType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		case pattern != "" && mediaType == pattern:
			return true
		}
	}
	return false
}

// DetectMIME sniffs the content type. Text files have no magic bytes, so a
// plain-text result is refined by extension when possible.
func DetectMIME(fileName string, content []byte) string {
	detected := mimetype.Detect(content)
	if detected.Is("text/plain") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}
