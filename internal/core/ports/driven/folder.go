package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// FolderSource reads supported files from a local folder and reports
// changes to them.
type FolderSource interface {
	// Root returns the watched folder.
	Root() string

	// FullSync emits every supported file under the root. Both channels are
	// closed when the walk completes.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch emits changes until ctx is cancelled or the source is closed.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases the underlying watcher. It is safe to call more than once.
	Close() error
}
