package domain

import "time"

// RawDocument is a file picked up from a watched folder, before it is
// turned into an Upload.
type RawDocument struct {
	// URI is the absolute file path.
	URI string

	// MIMEType is detected from the extension.
	MIMEType string

	// Content is the raw bytes. Empty for deletions.
	Content []byte

	// ModTime is the file's modification time.
	ModTime time.Time
}

// ToUpload converts the raw file into an Upload named after its base name.
func (r *RawDocument) ToUpload(filename string) *Upload {
	return &Upload{
		Filename:     filename,
		MIMEType:     r.MIMEType,
		Size:         int64(len(r.Content)),
		Content:      r.Content,
		LastModified: r.ModTime,
	}
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns a short label for the change.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawDocumentChange is emitted by the folder watcher.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Document is the affected file.
	Document RawDocument
}

// FolderAction is what the folder sync did with one file.
type FolderAction string

// Folder sync actions.
const (
	FolderAdded    FolderAction = "added"
	FolderReplaced FolderAction = "replaced"
	FolderSkipped  FolderAction = "skipped"
	FolderFailed   FolderAction = "failed"
)

// FolderEvent reports the handling of one file.
type FolderEvent struct {
	Action     FolderAction
	Path       string
	DocumentID int64
	Err        error
}

// FolderSyncReport counts the outcome of a folder sync.
type FolderSyncReport struct {
	Added    int
	Replaced int
	Skipped  int
	Failed   int
}

// Record counts one event.
func (r *FolderSyncReport) Record(event FolderEvent) {
	switch event.Action {
	case FolderAdded:
		r.Added++
	case FolderReplaced:
		r.Replaced++
	case FolderSkipped:
		r.Skipped++
	case FolderFailed:
		r.Failed++
	}
}
