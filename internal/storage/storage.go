// Package storage provides object storage for generated report documents.
//
// Two implementations back the Storage interface: LocalStorage writes to
// the filesystem for development, R2Storage targets Cloudflare R2
// (S3-compatible) for production.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Storage is the interface report documents are written through.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key. Returns ErrKeyExists if the key
	// is taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the object at the specified key. The caller must close
	// the reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object: permanent for public
	// objects, presigned for the given duration otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Detected from the key when empty.
	ContentType string

	// MaxSize caps the object size in bytes. Zero means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./storage".
	BasePath string

	// BaseURL is the public URL prefix, e.g. "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's custom-domain URL, if any. When empty all
	// access goes through presigned URLs.
	PublicURL string

	// Region is required by the AWS SDK; R2 accepts "auto".
	Region string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// ReportKey generates the storage key for a generated report document.
// Format: reports/{userID}/{reportID}.md
func ReportKey(userID, reportID uuid.UUID) string {
	return fmt.Sprintf("reports/%s/%s.md", userID, reportID)
}
