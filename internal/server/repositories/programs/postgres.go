package programs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// PostgresRepository implements program storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, program *models.Program) (*models.Program, error) {
	query := `
		INSERT INTO programs (name, description, application_start_date, application_end_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		program.Name, program.Description, program.ApplicationStartDate, program.ApplicationEndDate, program.Status,
	).Scan(&program.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return program, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Program, error) {
	query := `
		SELECT id, name, description, application_start_date, application_end_date, status
		FROM programs
		WHERE id = $1
	`
	p := &models.Program{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.ApplicationStartDate, &p.ApplicationEndDate, &p.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, openOnly bool) ([]*models.Program, error) {
	query := `
		SELECT id, name, description, application_start_date, application_end_date, status
		FROM programs
		WHERE ($1 = FALSE OR status = $2)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, openOnly, common.ProgramStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to select programs: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Program, 0)
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.ApplicationStartDate, &p.ApplicationEndDate, &p.Status,
		); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, program *models.Program) error {
	query := `
		UPDATE programs
		SET name = $1, description = $2, application_start_date = $3, application_end_date = $4, status = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		program.Name, program.Description, program.ApplicationStartDate, program.ApplicationEndDate, program.Status,
		program.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM programs
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
