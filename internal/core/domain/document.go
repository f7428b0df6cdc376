package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document represents one user-supplied text artifact held by the content store.
type Document struct {
	// ID is assigned by the store on insert and never reused.
	ID int64 `json:"id"`

	// Filename is the original file name, including extension.
	Filename string `json:"filename"`

	// FileType is the MIME type reported at upload.
	FileType string `json:"fileType"`

	// FileSize is the byte size of the uploaded file.
	FileSize int64 `json:"fileSize"`

	// Content is the extracted text.
	Content string `json:"content"`

	// ContentHash is the hex SHA-256 digest of Content.
	// It must be recomputed whenever Content changes.
	ContentHash string `json:"contentHash"`

	// UploadDate is when the document was first stored.
	UploadDate time.Time `json:"uploadDate"`

	// LastModified is bumped on every update.
	LastModified time.Time `json:"lastModified"`

	// EmbeddingsGenerated is set once every chunk has a cached vector.
	EmbeddingsGenerated bool `json:"embeddingsGenerated"`

	// Tags are free-form labels.
	Tags []string `json:"tags"`

	// Description is a free-form note.
	Description string `json:"description"`
}

// Extension returns the lower-cased file extension without the dot,
// or "unknown" when the filename has none.
func (d *Document) Extension() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Filename)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// DocumentUpdate carries the fields to merge into an existing document.
// Nil fields are left untouched.
type DocumentUpdate struct {
	Filename            *string
	Content             *string
	Tags                []string
	Description         *string
	EmbeddingsGenerated *bool
}

// IsEmpty reports whether the update changes nothing.
func (u DocumentUpdate) IsEmpty() bool {
	return u.Filename == nil && u.Content == nil && u.Tags == nil &&
		u.Description == nil && u.EmbeddingsGenerated == nil
}

// DocumentMetadata is optional user input supplied alongside an upload.
type DocumentMetadata struct {
	Tags        []string
	Description string
}

// Backup is the export/import file format.
type Backup struct {
	ExportDate time.Time  `json:"exportDate"`
	Version    string     `json:"version"`
	Documents  []Document `json:"documents"`
}

// BackupVersion is written into every export.
const BackupVersion = "1.0"

// ImportFailure records one backup entry that could not be imported.
type ImportFailure struct {
	// Index is the position of the entry in the backup.
	Index int

	// Filename is the entry's filename, if it had one.
	Filename string

	// Reason describes why the entry was skipped.
	Reason string
}

// ImportReport summarises an import.
type ImportReport struct {
	// Imported holds the newly stored documents with their fresh ids.
	Imported []Document

	// Failed lists entries that were skipped.
	Failed []ImportFailure
}
