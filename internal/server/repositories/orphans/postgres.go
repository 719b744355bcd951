package orphans

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// PostgresRepository implements the orphaned blob ledger over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, blobName string, lastError string) error {
	query := `
		INSERT INTO orphaned_blobs (blob_name, attempts, last_error)
		VALUES ($1, 1, $2)
		ON CONFLICT (blob_name)
		DO UPDATE SET
			attempts = orphaned_blobs.attempts + 1,
			last_error = EXCLUDED.last_error
	`
	if _, err := r.db.ExecContext(ctx, query, blobName, lastError); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.OrphanedBlob, error) {
	query := `
		SELECT blob_name, created_at, attempts, last_error
		FROM orphaned_blobs
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select orphaned blobs: %w", err)
	}
	defer rows.Close()

	var result []*models.OrphanedBlob
	for rows.Next() {
		var item models.OrphanedBlob
		if err := rows.Scan(&item.BlobName, &item.CreatedAt, &item.Attempts, &item.LastError); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, blobName string) error {
	query := `
		DELETE FROM orphaned_blobs
		WHERE blob_name = $1
	`
	if _, err := r.db.ExecContext(ctx, query, blobName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, blobName string, lastError string) error {
	query := `
		UPDATE orphaned_blobs
		SET attempts = attempts + 1, last_error = $1
		WHERE blob_name = $2
	`
	if _, err := r.db.ExecContext(ctx, query, lastError, blobName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
