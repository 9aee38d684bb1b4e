// Package storage provides blob storage operations with an Azure Blob
// Storage implementation.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/ledgerworks/conveyor/pkg/lifecycle"
)

// List request bounds.
const (
	DefaultListMax = 100
	MaxListCap     = 500
)

// Object describes one stored blob.
type Object struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

// DownloadResult is an open blob stream with its metadata. Callers must
// close Body.
type DownloadResult struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that initializes the storage container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to a blob at the given key with the specified content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the blob at the given key plus its metadata.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (*DownloadResult, error)
	// DownloadBytes reads the full blob at the given key into memory.
	DownloadBytes(ctx context.Context, key string) ([]byte, error)
	// Delete removes the blob at the given key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns up to max blobs whose names start with prefix.
	List(ctx context.Context, prefix string, max int) ([]Object, error)
	// Find returns up to max blobs whose names contain pattern.
	Find(ctx context.Context, pattern string, max int) ([]Object, error)
}

type azure struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// New creates a storage system from the given configuration.
// It validates the connection string and creates the Azure client
// but does not touch the container until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.Container,
		logger:    logger.With("system", "storage"),
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil {
			if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
				a.logger.Error("storage container initialization failed", "error", err)
				return
			}
		}

		a.logger.Info("storage container ready", "container", a.container)
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	_, err := a.client.UploadStream(ctx, a.container, key, reader, opts)
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}

	result := &DownloadResult{Body: resp.Body}
	if resp.ContentType != nil {
		result.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		result.ContentLength = *resp.ContentLength
	}

	return result, nil
}

func (a *azure) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	result, err := a.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}

	return data, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	blobClient := a.client.
		ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key)

	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}

	return true, nil
}

func (a *azure) List(ctx context.Context, prefix string, max int) ([]Object, error) {
	options := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		options.Prefix = &prefix
	}

	objects := make([]Object, 0, max)
	pager := a.client.NewListBlobsFlatPager(a.container, options)

	for pager.More() && len(objects) < max {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}

		for _, item := range page.Segment.BlobItems {
			if len(objects) >= max {
				break
			}
			objects = append(objects, blobObject(item.Name, item.Properties))
		}
	}

	return objects, nil
}

func (a *azure) Find(ctx context.Context, pattern string, max int) ([]Object, error) {
	objects := make([]Object, 0, max)
	pager := a.client.NewListBlobsFlatPager(a.container, nil)

	for pager.More() && len(objects) < max {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("find blobs: %w", err)
		}

		for _, item := range page.Segment.BlobItems {
			if len(objects) >= max {
				break
			}
			if item.Name == nil || !strings.Contains(*item.Name, pattern) {
				continue
			}
			objects = append(objects, blobObject(item.Name, item.Properties))
		}
	}

	return objects, nil
}

func blobObject(name *string, properties *container.BlobProperties) Object {
	object := Object{}
	if name != nil {
		object.Name = *name
	}
	if properties != nil {
		if properties.ContentLength != nil {
			object.Size = *properties.ContentLength
		}
		if properties.ContentType != nil {
			object.ContentType = *properties.ContentType
		}
		if properties.LastModified != nil {
			object.LastModified = *properties.LastModified
		}
	}
	return object
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// ParseMaxResults parses a maxResults query value, applying the default when
// empty and clamping to MaxListCap.
func ParseMaxResults(raw string) (int, error) {
	if raw == "" {
		return DefaultListMax, nil
	}

	max, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid maxResults %q: %w", raw, err)
	}
	if max < 1 {
		return 0, fmt.Errorf("maxResults must be positive: %d", max)
	}
	if max > MaxListCap {
		max = MaxListCap
	}

	return max, nil
}
