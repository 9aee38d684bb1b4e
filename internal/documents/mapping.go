package documents

import (
	"net/url"

	"github.com/ledgerworks/conveyor/pkg/query"
	"github.com/ledgerworks/conveyor/pkg/repository"
)

func projection() *query.ProjectionMap {
	return query.NewProjection("documents", "d").
		Map("id", "d.id").
		Map("fileName", "d.file_name").
		Map("contentHash", "d.content_hash").
		Map("byteSize", "d.byte_size").
		Map("mimeType", "d.mime_type").
		Map("pageCount", "d.page_count").
		Map("storageKey", "d.storage_key").
		Map("status", "d.status").
		Map("uploadedAt", "d.uploaded_at").
		Map("updatedAt", "d.updated_at")
}

// Filters narrow and order document listings.
type Filters struct {
	Status        string
	Search        string
	SortField     string
	SortDirection string
}

// FiltersFromQuery parses listing filters from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		Status:        values.Get("status"),
		Search:        values.Get("search"),
		SortField:     values.Get("sortField"),
		SortDirection: values.Get("sortDirection"),
	}
}

func (f Filters) apply(builder *query.Builder) *query.Builder {
	if f.Status != "" {
		builder.WhereEquals("status", f.Status)
	}
	if f.Search != "" {
		builder.WhereSearch(f.Search, "fileName", "contentHash")
	}
	return builder.OrderByFields(f.SortField, f.SortDirection, "uploadedAt")
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.FileName,
		&d.ContentHash,
		&d.ByteSize,
		&d.MimeType,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
