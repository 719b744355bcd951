// Package reports declares the report store and its PostgreSQL implementation.
package reports

import (
	"context"

	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// Repository persists submitted reports.
type Repository interface {
	// Create inserts report and fills in its ID.
	Create(ctx context.Context, report *models.Report) (*models.Report, error)

	// Get returns common.ErrorNotFound when the report does not exist.
	Get(ctx context.Context, id int64) (*models.Report, error)

	// GetByBlobName looks a report up by its stored file name.
	GetByBlobName(ctx context.Context, blobName string) (*models.Report, error)

	// ListByUser returns the user's reports with ProgramName filled in.
	ListByUser(ctx context.Context, userID int64) ([]*models.Report, error)

	// ListAll returns every report with ProgramName and OwnerIBAN filled in.
	ListAll(ctx context.Context) ([]*models.Report, error)

	// Update overwrites status and reward of the row identified by report.ID.
	Update(ctx context.Context, report *models.Report) error

	// DeleteByProgram removes all reports of a program and returns the stored
	// file names of exactly the rows it removed.
	DeleteByProgram(ctx context.Context, programID int64) ([]string, error)
}
