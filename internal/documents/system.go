package documents

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/pkg/pagination"
	"github.com/ledgerworks/conveyor/pkg/storage"
)

// System is the documents surface consumed by handlers and pipeline
// activities.
type System interface {
	// Resolve deduplicates uploaded bytes against prior submissions by
	// content hash, creating the document and storing its blob only when
	// the content is new.
	Resolve(ctx context.Context, fileName string, data []byte, mimeType string) (Resolution, error)

	Get(ctx context.Context, id uuid.UUID) (Document, error)
	GetByHash(ctx context.Context, contentHash string) (Document, error)
	List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Document], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Download(ctx context.Context, id uuid.UUID) (Document, *storage.DownloadResult, error)
	DownloadBytes(ctx context.Context, id uuid.UUID) (Document, []byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewSystem creates the repository-backed documents System.
func NewSystem(db *sql.DB, store storage.System, pageCfg pagination.Config, logger *slog.Logger) System {
	return &repo{
		db:      db,
		storage: store,
		pageCfg: pageCfg,
		logger:  logger.With("system", "documents"),
	}
}
