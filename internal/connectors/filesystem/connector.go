// Package filesystem reads uploadable files from a local folder and
// watches it for changes with fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.FolderSource = (*Connector)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("filesystem connector closed")

// Connector walks and watches one folder. Hidden files and directories
// and files with unsupported extensions are ignored.
type Connector struct {
	rootPath   string
	extensions map[string]bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath accepting the upload extensions.
func New(rootPath string) *Connector {
	exts := make(map[string]bool)
	for _, e := range domain.SupportedUploadExtensions() {
		exts[e] = true
	}
	return &Connector{rootPath: ResolvePath(rootPath), extensions: exts}
}

// Root returns the watched folder.
func (c *Connector) Root() string {
	return c.rootPath
}

// FullSync emits every supported file under the root.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("walking %s: %v", path, err)
				return nil
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !c.accepts(path) {
				return nil
			}

			doc, err := c.read(path)
			if err != nil {
				logger.Warn("reading %s: %v", path, err)
				return nil
			}
			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return docs, errs
}

// Watch emits changes to supported files until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.RawDocumentChange)
	go c.loop(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) loop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.RawDocumentChange) {
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			change, ok := c.translate(watcher, event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// translate maps an fsnotify event to a change. Rename counts as deletion
// of the old name; the new name arrives as a separate create.
func (c *Connector) translate(watcher *fsnotify.Watcher, event fsnotify.Event) (domain.RawDocumentChange, bool) {
	path := event.Name
	if isHidden(filepath.Base(path)) {
		return domain.RawDocumentChange{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !c.accepts(path) {
			return domain.RawDocumentChange{}, false
		}
		return domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{URI: path, MIMEType: mimeType(path)},
		}, true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := c.addTree(watcher, path); err != nil {
					logger.Warn("watching %s: %v", path, err)
				}
			}
			return domain.RawDocumentChange{}, false
		}
		if !c.accepts(path) {
			return domain.RawDocumentChange{}, false
		}
		doc, err := c.read(path)
		if err != nil {
			logger.Debug("skipping %s: %v", path, err)
			return domain.RawDocumentChange{}, false
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return domain.RawDocumentChange{Type: changeType, Document: *doc}, true
	}

	return domain.RawDocumentChange{}, false
}

// Close stops the watcher. It is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

func (c *Connector) accepts(path string) bool {
	return c.extensions[strings.ToLower(filepath.Ext(path))]
}

func (c *Connector) read(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > domain.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, info.Size())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType(path),
		Content:  content,
		ModTime:  info.ModTime(),
	}, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
