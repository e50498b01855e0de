/*
Package storage is the attachment store: a content store keyed by generated name.

Two drivers exist. The S3 driver targets any S3-compatible endpoint and can hand
out presigned download URLs. The local driver writes under a directory through
afero, which also lets tests run against an in-memory filesystem.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
)

const (
	// DriverLocal stores attachments on the local filesystem.
	DriverLocal = "local"

	// DriverS3 stores attachments in an S3-compatible bucket.
	DriverS3 = "s3"

	// PresignedURLDuration is the validity of download URLs handed to clients.
	PresignedURLDuration = 5 * time.Minute
)

// ErrNotFound is returned by Open for unknown names.
var ErrNotFound = errors.New("attachment not found")

// ServiceConfig selects and configures a driver.
type ServiceConfig struct {
	Driver            string
	UploadDir         string
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service stores and retrieves attachment bytes.
type Service interface {
	// Put stores data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Open returns the content stored under name, or ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes name. Deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error
}

// Presigner is implemented by drivers that can hand out direct download URLs.
type Presigner interface {
	PresignDownload(ctx context.Context, name string, duration time.Duration) (string, error)
}

// NewService returns the driver selected by cfg.Driver.
func NewService(cfg ServiceConfig) (Service, error) {
	switch cfg.Driver {
	case DriverS3:
		return newS3Client(cfg)
	case DriverLocal, "":
		osFs := afero.NewOsFs()
		if err := osFs.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
		return NewLocalStore(afero.NewBasePathFs(osFs, cfg.UploadDir)), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
