// Package blobstore stores uploaded report files under server-generated names.
// Two backends exist: a flat local directory and an S3-compatible bucket.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
)

// Store is a flat namespace of named blobs.
type Store interface {
	// Put writes r under name, replacing any existing blob.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open returns the blob contents; common.ErrorNotFound when absent.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes the blob. Removing a missing blob is not an error.
	Remove(ctx context.Context, name string) error
}

// ValidateName rejects names that could escape the flat namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid file name", common.ErrorValidation)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid file name", common.ErrorValidation)
	}
	return nil
}

// New builds the Store selected by cfg.BlobBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case "", config.BlobBackendLocal:
		return NewLocalStore(cfg.UploadDir)
	case config.BlobBackendS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
