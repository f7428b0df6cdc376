package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// FolderSyncOptions configures a folder sync.
type FolderSyncOptions struct {
	// Embed generates embeddings for every stored document when the engine
	// is initialised.
	Embed bool

	// OnEvent is called after each file is handled. May be nil.
	OnEvent func(event domain.FolderEvent)
}

// FolderSyncService uploads files from a folder into the content store.
type FolderSyncService interface {
	// Sync uploads every supported file once. Duplicates are skipped.
	Sync(ctx context.Context, source driven.FolderSource, opts FolderSyncOptions) (*domain.FolderSyncReport, error)

	// Watch runs Sync and then follows changes until ctx is cancelled.
	Watch(ctx context.Context, source driven.FolderSource, opts FolderSyncOptions) error
}
