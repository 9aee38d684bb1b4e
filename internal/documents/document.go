// Package documents manages uploaded source documents: content-hash
// deduplication, blob persistence, and processing status.
package documents

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Processing statuses a document moves through. Processed is the terminal
// success state; a re-submission of processed content short-circuits the
// pipeline.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Document is the durable record of one uploaded input.
type Document struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentHash string    `json:"contentHash"`
	ByteSize    int64     `json:"byteSize"`
	MimeType    string    `json:"mimeType"`
	PageCount   int       `json:"pageCount"`
	StorageKey  string    `json:"storageKey"`
	Status      string    `json:"status"`
	UploadedAt  time.Time `json:"uploadedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Processed reports whether the document already completed the pipeline.
func (d Document) Processed() bool {
	return d.Status == StatusProcessed
}

// Resolution is the outcome of resolving uploaded bytes to a document.
type Resolution struct {
	Document Document `json:"document"`
	IsNew    bool     `json:"isNew"`
}

// ContentHash computes the digest used for duplicate detection.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
