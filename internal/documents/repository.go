package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ledgerworks/conveyor/pkg/pagination"
	"github.com/ledgerworks/conveyor/pkg/query"
	"github.com/ledgerworks/conveyor/pkg/repository"
	"github.com/ledgerworks/conveyor/pkg/storage"
)

const pdfMimeType = "application/pdf"

type repo struct {
	db      *sql.DB
	storage storage.System
	pageCfg pagination.Config
	logger  *slog.Logger
}

func (r *repo) Resolve(ctx context.Context, fileName string, data []byte, mimeType string) (Resolution, error) {
	if len(data) == 0 {
		return Resolution{}, ErrEmptyDocument
	}
	if mimeType != pdfMimeType {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	contentHash := ContentHash(data)

	existing, err := r.GetByHash(ctx, contentHash)
	if err == nil {
		return Resolution{Document: existing, IsNew: false}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Resolution{}, err
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to read pdf page count: %w", err)
	}

	document := Document{
		ID:          uuid.New(),
		FileName:    fileName,
		ContentHash: contentHash,
		ByteSize:    int64(len(data)),
		MimeType:    mimeType,
		PageCount:   pageCount,
		Status:      StatusPending,
	}
	document.StorageKey = fmt.Sprintf("documents/%s.pdf", document.ID)

	if err := r.storage.Upload(ctx, document.StorageKey, bytes.NewReader(data), mimeType); err != nil {
		return Resolution{}, fmt.Errorf("failed to store document blob: %w", err)
	}

	created, err := r.insert(ctx, document)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent upload of the same content won the insert. Use the
		// winner's record and drop our orphaned blob.
		if derr := r.storage.Delete(ctx, document.StorageKey); derr != nil {
			r.logger.Warn("failed to remove orphaned blob", "key", document.StorageKey, "error", derr)
		}

		existing, err := r.GetByHash(ctx, contentHash)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Document: existing, IsNew: false}, nil
	}
	if err != nil {
		return Resolution{}, err
	}

	r.logger.Info("document stored",
		"id", created.ID,
		"fileName", created.FileName,
		"pages", created.PageCount,
		"bytes", created.ByteSize,
	)
	return Resolution{Document: created, IsNew: true}, nil
}

func (r *repo) insert(ctx context.Context, d Document) (Document, error) {
	return repository.QueryOne(ctx, r.db, scanDocument, `
		INSERT INTO documents (id, file_name, content_hash, byte_size, mime_type, page_count, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, file_name, content_hash, byte_size, mime_type, page_count, storage_key, status, uploaded_at, updated_at`,
		d.ID, d.FileName, d.ContentHash, d.ByteSize, d.MimeType, d.PageCount, d.StorageKey, d.Status,
	)
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	builder := query.NewBuilder(projection())
	builder.WhereEquals("id", id)

	sql, args := builder.BuildSingle()

	document, err := repository.QueryOne(ctx, r.db, scanDocument, sql, args...)
	if err != nil {
		return Document{}, mapError(err)
	}
	return document, nil
}

func (r *repo) GetByHash(ctx context.Context, contentHash string) (Document, error) {
	builder := query.NewBuilder(projection())
	builder.WhereEquals("contentHash", contentHash)

	sql, args := builder.BuildSingle()

	document, err := repository.QueryOne(ctx, r.db, scanDocument, sql, args...)
	if err != nil {
		return Document{}, mapError(err)
	}
	return document, nil
}

func (r *repo) List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Document], error) {
	page.Normalize(r.pageCfg)

	builder := filters.apply(query.NewBuilder(projection()))

	countSQL, countArgs := builder.BuildCount()
	total, err := repository.QueryValue[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return pagination.PageResult[Document]{}, mapError(err)
	}

	pageSQL, pageArgs := builder.BuildPage(page)
	items, err := repository.QueryMany(ctx, r.db, scanDocument, pageSQL, pageArgs...)
	if err != nil {
		return pagination.PageResult[Document]{}, mapError(err)
	}

	return pagination.NewPageResult(items, total, page), nil
}

func (r *repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return mapError(err)
	}

	r.logger.Info("document status updated", "id", id, "status", status)
	return nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) (Document, *storage.DownloadResult, error) {
	document, err := r.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}

	result, err := r.storage.Download(ctx, document.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Document{}, nil, fmt.Errorf("%w: blob missing for %s", ErrNotFound, id)
		}
		return Document{}, nil, err
	}

	return document, result, nil
}

func (r *repo) DownloadBytes(ctx context.Context, id uuid.UUID) (Document, []byte, error) {
	document, err := r.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}

	data, err := r.storage.DownloadBytes(ctx, document.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Document{}, nil, fmt.Errorf("%w: blob missing for %s", ErrNotFound, id)
		}
		return Document{}, nil, err
	}

	return document, data, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	document, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := repository.ExecExpectOne(ctx, r.db, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return mapError(err)
	}

	if err := r.storage.Delete(ctx, document.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("failed to delete blob", "key", document.StorageKey, "error", err)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrReferenced):
		return ErrInUse
	}
	return err
}
