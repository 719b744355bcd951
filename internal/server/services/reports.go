package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/blobstore"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UploadFile is an uploaded report as received from the client.
type UploadFile struct {
	Filename string
	Content  io.Reader
}

// ReportUpdate lists optional review changes. RewardAmount is kept as text
// so both "12.50" and "12,50" are accepted.
type ReportUpdate struct {
	Status       *string
	RewardAmount *string
}

type ReportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	log         logging.Logger
}

func NewReportService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, log logging.Logger) *ReportService {
	return &ReportService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "reports"),
	}
}

// NewBlobName returns a fresh server-side file name for an uploaded report.
func NewBlobName() string {
	return uuid.New().String() + common.ReportFileExtension
}

// Upload stores file for the given program and records a pending report.
func (s *ReportService) Upload(ctx context.Context, caller *models.User, programID int64, file *UploadFile) (*models.Report, error) {
	program, err := s.repomanager.Programs(s.db).Get(ctx, programID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Program not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching program: %w", err)
	}

	if program.Status != common.ProgramStatusOpen {
		return nil, fmt.Errorf("%w: Program application is closed", common.ErrorValidation)
	}

	if file == nil || file.Content == nil {
		return nil, fmt.Errorf("%w: No file part", common.ErrorValidation)
	}
	if strings.TrimSpace(file.Filename) == "" {
		return nil, fmt.Errorf("%w: No selected file", common.ErrorValidation)
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), common.ReportFileExtension) {
		return nil, fmt.Errorf("%w: Only PDF files are allowed", common.ErrorValidation)
	}

	name := NewBlobName()
	if err := s.store.Put(ctx, name, file.Content); err != nil {
		return nil, fmt.Errorf("error storing report file: %w", err)
	}

	report, err := s.repomanager.Reports(s.db).Create(ctx, &models.Report{
		UserID:       caller.ID,
		ProgramID:    program.ID,
		BlobName:     name,
		Status:       common.ReportStatusPending,
		RewardAmount: 0,
	})
	if err != nil {
		if rmErr := s.store.Remove(ctx, name); rmErr != nil {
			s.log.Error(ctx, "failed to remove file of rejected report", "blob", name, "error", rmErr)
		}
		return nil, fmt.Errorf("error creating report: %w", err)
	}

	s.log.Info(ctx, "report uploaded", "report_id", report.ID, "program_id", program.ID, "user_id", caller.ID)
	return report, nil
}

// ListMine returns the caller's own reports with program names.
func (s *ReportService) ListMine(ctx context.Context, caller *models.User) ([]*models.Report, error) {
	reports, err := s.repomanager.Reports(s.db).ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	return reports, nil
}

// ListAll returns every report with program names and owner IBANs.
func (s *ReportService) ListAll(ctx context.Context) ([]*models.Report, error) {
	reports, err := s.repomanager.Reports(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	return reports, nil
}

func (s *ReportService) Update(ctx context.Context, id int64, upd ReportUpdate) (*models.Report, error) {
	repo := s.repomanager.Reports(s.db)

	report, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Report not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching report: %w", err)
	}

	if upd.Status != nil {
		switch *upd.Status {
		case common.ReportStatusPending, common.ReportStatusAccepted, common.ReportStatusRejected:
			report.Status = *upd.Status
		default:
			return nil, fmt.Errorf("%w: status must be one of %s, %s, %s", common.ErrorValidation,
				common.ReportStatusPending, common.ReportStatusAccepted, common.ReportStatusRejected)
		}
	}

	if upd.RewardAmount != nil {
		amount, err := common.ParseDecimal(*upd.RewardAmount)
		if err != nil {
			return nil, err
		}
		report.RewardAmount = amount
	}

	if err := repo.Update(ctx, report); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Report not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error updating report: %w", err)
	}

	return report, nil
}

// FetchOwn opens a stored report file on behalf of its uploader. Admins may
// open any file through this path as well.
func (s *ReportService) FetchOwn(ctx context.Context, caller *models.User, filename string) (io.ReadCloser, error) {
	if err := blobstore.ValidateName(filename); err != nil {
		return nil, err
	}

	report, err := s.repomanager.Reports(s.db).GetByBlobName(ctx, filename)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Report not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching report: %w", err)
	}

	if report.UserID != caller.ID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: You are not authorized to view this file", common.ErrorForbidden)
	}

	return s.open(ctx, filename)
}

// FetchAdmin opens any stored file. Callers must have checked the admin role.
func (s *ReportService) FetchAdmin(ctx context.Context, filename string) (io.ReadCloser, error) {
	if err := blobstore.ValidateName(filename); err != nil {
		return nil, err
	}
	return s.open(ctx, filename)
}

func (s *ReportService) open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: File not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error opening report file: %w", err)
	}
	return rc, nil
}
