package contactclient_test

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"portfolio-backend/pkg/contactclient"
	"portfolio-backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notes struct {
	got []contactclient.Notification
}

func (n *notes) Notify(note contactclient.Notification) {
	n.got = append(n.got, note)
}

func (n *notes) titles() []string {
	titles := make([]string, 0, len(n.got))
	for _, note := range n.got {
		titles = append(titles, note.Title)
	}
	return titles
}

var pdfBytes = []byte("%PDF-1.7\n%fake document\n")

func TestCollector_Add(t *testing.T) {
	t.Run("Should accept a file of exactly 10 MiB and reject one byte more", func(t *testing.T) {
		n := &notes{}
		c := contactclient.NewCollector(contactclient.WithCollectorNotifier(n))

		_, err := c.Add("exact.pdf", make([]byte, security.MaxAttachmentSize), "application/pdf")
		require.NoError(t, err)

		_, err = c.Add("big.pdf", make([]byte, security.MaxAttachmentSize+1), "application/pdf")

		var rej *contactclient.RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, "big.pdf", rej.FileName)
		assert.ErrorIs(t, err, contactclient.ErrAttachmentTooLarge)

		assert.Equal(t, 1, c.Len())
		assert.Equal(t, []string{"File attached", "File not attached"}, n.titles())
		assert.Equal(t, contactclient.LevelError, n.got[1].Level)
		assert.Contains(t, n.got[1].Description, "10 MB")
	})

	t.Run("Should reject types that match no accepted pattern", func(t *testing.T) {
		c := contactclient.NewCollector()

		_, err := c.Add("setup.exe", []byte("MZ\x90\x00"), "application/x-msdownload")
		assert.ErrorIs(t, err, contactclient.ErrAttachmentTypeNotAllowed)

		_, err = c.Add("bundle.zip", []byte("PK\x03\x04"), "application/zip")
		assert.ErrorIs(t, err, contactclient.ErrAttachmentTypeNotAllowed)
		assert.Zero(t, c.Len())
	})

	t.Run("Should accept archives when enabled", func(t *testing.T) {
		c := contactclient.NewCollector(contactclient.WithArchives())

		_, err := c.Add("bundle.zip", []byte("PK\x03\x04"), "application/zip")
		assert.NoError(t, err)
	})

	t.Run("Should detect the type when none is given", func(t *testing.T) {
		c := contactclient.NewCollector()

		ref, err := c.Add("cv.pdf", pdfBytes, "")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", ref.MIMEType)
		assert.Equal(t, int64(len(pdfBytes)), ref.ByteSize)
	})
}

func TestCollector_AddFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Should read an accepted file from disk", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o600))

		ref, err := contactclient.NewCollector().AddFile(path)
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", ref.FileName)
		assert.Contains(t, ref.MIMEType, "text/plain")
	})

	t.Run("Should reject an oversized file by its size", func(t *testing.T) {
		path := filepath.Join(dir, "huge.pdf")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(security.MaxAttachmentSize+1))
		require.NoError(t, f.Close())

		_, err = contactclient.NewCollector().AddFile(path)
		assert.ErrorIs(t, err, contactclient.ErrAttachmentTooLarge)
	})

	t.Run("Should reject a missing file", func(t *testing.T) {
		_, err := contactclient.NewCollector().AddFile(filepath.Join(dir, "missing.pdf"))

		var rej *contactclient.RejectionError
		require.ErrorAs(t, err, &rej)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestCollector_Remove(t *testing.T) {
	n := &notes{}
	c := contactclient.NewCollector(contactclient.WithCollectorNotifier(n))

	a, _ := c.Add("a.pdf", pdfBytes, "application/pdf")
	b, _ := c.Add("b.pdf", pdfBytes, "application/pdf")
	d, _ := c.Add("d.pdf", pdfBytes, "application/pdf")

	t.Run("Should keep the order of the remaining files", func(t *testing.T) {
		assert.True(t, c.Remove(b.ID))
		assert.False(t, c.Remove(b.ID), "already removed")

		list := c.List()
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, d.ID, list[1].ID)
		assert.Equal(t, "File removed", n.got[len(n.got)-1].Title)
	})

	t.Run("Should resolve an index at call time", func(t *testing.T) {
		assert.False(t, c.RemoveAt(5))
		assert.True(t, c.RemoveAt(1))

		list := c.List()
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].ID)
	})

	t.Run("Should clear everything", func(t *testing.T) {
		c.Clear()
		assert.Zero(t, c.Len())
	})
}

func TestCollector_WriteParts(t *testing.T) {
	c := contactclient.NewCollector()
	_, _ = c.Add("first.pdf", pdfBytes, "application/pdf")
	removed, _ := c.Add("second.txt", []byte("second"), "text/plain")
	_, _ = c.Add("résumé.pdf", pdfBytes, "application/pdf")
	require.True(t, c.Remove(removed.ID))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	n, err := c.WriteParts(w)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 2, n)

	r := multipart.NewReader(&buf, w.Boundary())
	var names, files []string
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, part.FormName())
		files = append(files, part.FileName())
		assert.Equal(t, "application/pdf", part.Header.Get("Content-Type"))

		content, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, content)
	}

	assert.Equal(t, []string{"attachment_0", "attachment_1"}, names)
	assert.Equal(t, []string{"first.pdf", "résumé.pdf"}, files)
}
