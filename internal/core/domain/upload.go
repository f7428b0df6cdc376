package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MaxUploadSize is the largest file accepted for upload (10 MiB).
const MaxUploadSize = 10 * 1024 * 1024

// Upload is a file as received from the user, before text extraction.
type Upload struct {
	// Filename is the base name of the file.
	Filename string `validate:"required"`

	// MIMEType is the reported content type; may be empty.
	MIMEType string

	// Size is the byte size of Content.
	Size int64 `validate:"gte=0"`

	// Content is the raw file bytes.
	Content []byte

	// LastModified is the file's modification time, if known.
	LastModified time.Time
}

// Extension returns the lower-cased file extension including the dot.
func (u *Upload) Extension() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// SupportedUploadTypes lists the accepted MIME types.
func SupportedUploadTypes() []string {
	return []string{"text/plain", "text/markdown", "application/pdf"}
}

// SupportedUploadExtensions lists the accepted file extensions.
func SupportedUploadExtensions() []string {
	return []string{".txt", ".md", ".pdf"}
}

// IsSupported reports whether the upload's MIME type or extension is accepted.
func (u *Upload) IsSupported() bool {
	mimeType := u.MIMEType
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	for _, t := range SupportedUploadTypes() {
		if mimeType == t {
			return true
		}
	}
	ext := u.Extension()
	for _, e := range SupportedUploadExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}
