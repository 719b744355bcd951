package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

// PostgresRepository implements report storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	query := `
		INSERT INTO reports (user_id, program_id, report_pdf_path, status, reward_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		report.UserID, report.ProgramID, report.BlobName, report.Status, report.RewardAmount,
	).Scan(&report.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return report, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Report, error) {
	query := `
		SELECT id, user_id, program_id, report_pdf_path, status, reward_amount
		FROM reports
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByBlobName(ctx context.Context, blobName string) (*models.Report, error) {
	query := `
		SELECT id, user_id, program_id, report_pdf_path, status, reward_amount
		FROM reports
		WHERE report_pdf_path = $1
	`
	return r.getOne(ctx, query, blobName)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Report, error) {
	rep := &models.Report{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&rep.ID, &rep.UserID, &rep.ProgramID, &rep.BlobName, &rep.Status, &rep.RewardAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rep, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Report, error) {
	query := `
		SELECT r.id, r.user_id, r.program_id, r.report_pdf_path, r.status, r.reward_amount, p.name
		FROM reports r
		JOIN programs p ON p.id = r.program_id
		WHERE r.user_id = $1
		ORDER BY r.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Report, 0)
	for rows.Next() {
		var item models.Report
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProgramID, &item.BlobName, &item.Status, &item.RewardAmount,
			&item.ProgramName,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Report, error) {
	query := `
		SELECT r.id, r.user_id, r.program_id, r.report_pdf_path, r.status, r.reward_amount, p.name, u.iban
		FROM reports r
		JOIN programs p ON p.id = r.program_id
		JOIN users u ON u.id = r.user_id
		ORDER BY r.id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Report, 0)
	for rows.Next() {
		var item models.Report
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProgramID, &item.BlobName, &item.Status, &item.RewardAmount,
			&item.ProgramName, &item.OwnerIBAN,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, report *models.Report) error {
	query := `
		UPDATE reports
		SET status = $1, reward_amount = $2
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, report.Status, report.RewardAmount, report.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByProgram(ctx context.Context, programID int64) ([]string, error) {
	query := `
		DELETE FROM reports
		WHERE program_id = $1
		RETURNING report_pdf_path
	`
	rows, err := r.db.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return names, nil
}
