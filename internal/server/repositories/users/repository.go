// Package users declares the identity store and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	// Create inserts user and fills in its ID. A duplicate username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns common.ErrorNotFound when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when no such user exists.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error

	// UpdateProfile overwrites the mutable profile columns with the values on user.
	UpdateProfile(ctx context.Context, user *models.User) error
}
