package contactclient

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"

	"portfolio-backend/pkg/security"

	"github.com/google/uuid"
)

// AttachmentFieldPrefix names the multipart parts: attachment_0, attachment_1, ...
const AttachmentFieldPrefix = "attachment_"

// AttachmentRef is one accepted file. ID stays stable for the lifetime of the
// entry, positions do not.
type AttachmentRef struct {
	ID       uuid.UUID
	FileName string
	ByteSize int64
	MIMEType string
	Content  []byte
}

// Collector holds the ordered list of files attached to a form
type Collector struct {
	mu       sync.Mutex
	policy   security.AttachmentPolicy
	notifier Notifier
	items    []AttachmentRef
}

type CollectorOption func(*Collector)

// WithPolicy replaces the default 10 MiB policy
func WithPolicy(p security.AttachmentPolicy) CollectorOption {
	return func(c *Collector) { c.policy = p }
}

// WithArchives also accepts .zip and .rar files
func WithArchives() CollectorOption {
	return func(c *Collector) { c.policy = security.DefaultAttachmentPolicy(true) }
}

func WithCollectorNotifier(n Notifier) CollectorOption {
	return func(c *Collector) { c.notifier = n }
}

func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{policy: security.DefaultAttachmentPolicy(false)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add attaches content under fileName. An empty mimeType is detected from the
// content. Rejected files are never added.
func (c *Collector) Add(fileName string, content []byte, mimeType string) (AttachmentRef, error) {
	if mimeType == "" {
		mimeType = security.DetectMIME(fileName, content)
	}

	if err := c.policy.Check(fileName, int64(len(content)), mimeType); err != nil {
		return AttachmentRef{}, c.reject(fileName, err)
	}

	ref := AttachmentRef{
		ID:       uuid.New(),
		FileName: fileName,
		ByteSize: int64(len(content)),
		MIMEType: mimeType,
		Content:  content,
	}

	c.mu.Lock()
	c.items = append(c.items, ref)
	c.mu.Unlock()

	notify(c.notifier, LevelSuccess, "File attached", fmt.Sprintf("%s has been attached to your message.", fileName))
	return ref, nil
}

// AddFile reads a file from disk. The size is checked before reading.
func (c *Collector) AddFile(path string) (AttachmentRef, error) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return AttachmentRef{}, c.reject(name, err)
	}
	if info.IsDir() {
		return AttachmentRef{}, c.reject(name, errors.New("is a directory"))
	}
	if err := c.policy.CheckSize(info.Size()); err != nil {
		return AttachmentRef{}, c.reject(name, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return AttachmentRef{}, c.reject(name, err)
	}
	return c.Add(name, content, "")
}

func (c *Collector) reject(fileName string, reason error) error {
	err := &RejectionError{FileName: fileName, Reason: reason}

	description := fmt.Sprintf("%s could not be attached.", fileName)
	switch {
	case errors.Is(reason, ErrAttachmentTooLarge):
		description = fmt.Sprintf("%s is larger than %s.", fileName, formatLimit(c.policy.MaxSize))
	case errors.Is(reason, ErrAttachmentTypeNotAllowed):
		description = fmt.Sprintf("%s is not an accepted file type.", fileName)
	}
	notify(c.notifier, LevelError, "File not attached", description)
	return err
}

// Remove drops the entry with the given ID and keeps the order of the rest.
// It reports whether an entry was removed.
func (c *Collector) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	removed := false
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()

	if removed {
		notify(c.notifier, LevelInfo, "File removed", "Attachment has been removed from your message.")
	}
	return removed
}

// RemoveAt resolves index to an ID now and removes that entry
func (c *Collector) RemoveAt(index int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return false
	}
	id := c.items[index].ID
	c.mu.Unlock()

	return c.Remove(id)
}

// List returns a copy of the current entries in order
func (c *Collector) List() []AttachmentRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AttachmentRef(nil), c.items...)
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collector) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// WriteParts writes the current entries as attachment_0 … attachment_{n-1}.
// Indexes are assigned at write time so they stay contiguous after removals.
func (c *Collector) WriteParts(w *multipart.Writer) (int, error) {
	items := c.List()
	for i, item := range items {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     fmt.Sprintf("%s%d", AttachmentFieldPrefix, i),
			"filename": item.FileName,
		}))
		h.Set("Content-Type", item.MIMEType)

		part, err := w.CreatePart(h)
		if err != nil {
			return i, err
		}
		if _, err := part.Write(item.Content); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func formatLimit(n int64) string {
	if n%(1024*1024) == 0 {
		return fmt.Sprintf("%d MB", n/(1024*1024))
	}
	return fmt.Sprintf("%d bytes", n)
}
