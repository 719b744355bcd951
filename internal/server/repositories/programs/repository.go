// Package programs declares the program catalog store and its PostgreSQL
// implementation.
package programs

import (
	"context"

	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// Repository persists bounty programs.
type Repository interface {
	// Create inserts program and fills in its ID.
	Create(ctx context.Context, program *models.Program) (*models.Program, error)

	// Get returns common.ErrorNotFound when the program does not exist.
	Get(ctx context.Context, id int64) (*models.Program, error)

	// List returns programs ordered by id; with openOnly set only programs
	// whose status is Open are returned.
	List(ctx context.Context, openOnly bool) ([]*models.Program, error)

	// Update overwrites every column of the row identified by program.ID.
	Update(ctx context.Context, program *models.Program) error

	// Delete removes the program row; common.ErrorNotFound when absent.
	Delete(ctx context.Context, id int64) error
}
