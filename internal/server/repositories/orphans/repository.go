// Package orphans keeps the ledger of stored files whose removal failed
// after their rows were deleted.
package orphans

import (
	"context"

	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// Repository persists orphaned blob names until the sweeper removes them.
type Repository interface {
	// Create records blobName with the removal error. Recording a name that
	// is already present counts as another failed attempt.
	Create(ctx context.Context, blobName string, lastError string) error

	// List returns up to limit entries, oldest first.
	List(ctx context.Context, limit int) ([]*models.OrphanedBlob, error)

	// Delete drops blobName from the ledger.
	Delete(ctx context.Context, blobName string) error

	// MarkFailed bumps the attempt counter and stores the latest error.
	MarkFailed(ctx context.Context, blobName string, lastError string) error
}
