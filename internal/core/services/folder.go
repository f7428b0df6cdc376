package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure FolderSyncService implements the interface.
var _ driving.FolderSyncService = (*FolderSyncService)(nil)

// FolderSyncService uploads files from a watched folder. A file whose name
// matches a stored document replaces it once the new content is stored;
// identical content is skipped. Deleted files leave their documents alone.
type FolderSyncService struct {
	content driving.ContentService
	engine  driving.EmbeddingEngine
}

// NewFolderSyncService creates a folder sync service. engine may be nil.
func NewFolderSyncService(content driving.ContentService, engine driving.EmbeddingEngine) *FolderSyncService {
	return &FolderSyncService{content: content, engine: engine}
}

// Sync uploads every supported file under the source root once.
func (s *FolderSyncService) Sync(
	ctx context.Context, source driven.FolderSource, opts driving.FolderSyncOptions,
) (*domain.FolderSyncReport, error) {
	logger.Section("Folder Sync")
	logger.Info("syncing %s", source.Root())

	report := &domain.FolderSyncReport{}
	docs, errs := source.FullSync(ctx)
	for raw := range docs {
		event := s.handle(ctx, raw, opts)
		report.Record(event)
		if opts.OnEvent != nil {
			opts.OnEvent(event)
		}
	}

	var syncErr error
	for err := range errs {
		syncErr = errors.Join(syncErr, err)
	}
	if syncErr != nil {
		return report, fmt.Errorf("sync %s: %w", source.Root(), syncErr)
	}

	logger.Info("folder sync: %d added, %d replaced, %d skipped, %d failed",
		report.Added, report.Replaced, report.Skipped, report.Failed)
	return report, nil
}

// Watch syncs the folder and then follows its changes until ctx is cancelled.
func (s *FolderSyncService) Watch(ctx context.Context, source driven.FolderSource, opts driving.FolderSyncOptions) error {
	if _, err := s.Sync(ctx, source, opts); err != nil {
		return err
	}

	changes, err := source.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching %s", source.Root())

	for change := range changes {
		if change.Type == domain.ChangeDeleted {
			logger.Debug("%s removed from folder, stored document kept", change.Document.URI)
			continue
		}
		event := s.handle(ctx, change.Document, opts)
		if opts.OnEvent != nil {
			opts.OnEvent(event)
		}
	}

	return nil
}

func (s *FolderSyncService) handle(ctx context.Context, raw domain.RawDocument, opts driving.FolderSyncOptions) domain.FolderEvent {
	event := domain.FolderEvent{Path: raw.URI}
	if len(raw.Content) == 0 {
		event.Action = domain.FolderSkipped
		return event
	}

	filename := filepath.Base(raw.URI)
	previous, err := s.findByFilename(ctx, filename)
	if err != nil {
		event.Action, event.Err = domain.FolderFailed, err
		return event
	}

	doc, err := s.content.StoreDocument(ctx, raw.ToUpload(filename), domain.DocumentMetadata{})
	switch {
	case errors.Is(err, domain.ErrDuplicateContent):
		logger.Debug("skipping %s: %v", raw.URI, err)
		event.Action = domain.FolderSkipped
		return event
	case err != nil:
		logger.Warn("uploading %s: %v", raw.URI, err)
		event.Action, event.Err = domain.FolderFailed, err
		return event
	}

	event.Action = domain.FolderAdded
	event.DocumentID = doc.ID
	if previous != nil && previous.ID != doc.ID {
		if err := s.content.DeleteDocument(ctx, previous.ID); err != nil {
			logger.Warn("removing previous version of %s: %v", filename, err)
		}
		event.Action = domain.FolderReplaced
	}

	if opts.Embed && s.engine != nil && s.engine.IsInitialized() {
		if _, err := s.engine.EnsureEmbeddings(ctx, []domain.Document{*doc}, nil); err != nil {
			logger.Warn("embedding %s: %v", filename, err)
			event.Err = err
		}
	}
	return event
}

func (s *FolderSyncService) findByFilename(ctx context.Context, filename string) (*domain.Document, error) {
	docs, err := s.content.GetAllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].Filename == filename {
			return &docs[i], nil
		}
	}
	return nil, nil
}
