package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/blobstore"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bugsheriff/internal/timex"
)

// ProgramInput carries program fields as received from the client. Dates are
// unparsed strings; nil means "not provided".
type ProgramInput struct {
	Name                 *string
	Description          *string
	ApplicationStartDate *string
	ApplicationEndDate   *string
	Status               *string
}

type ProgramService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	log         logging.Logger
}

func NewProgramService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, log logging.Logger) *ProgramService {
	return &ProgramService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "programs"),
	}
}

// List returns every program to admins and only open programs to everyone else.
func (s *ProgramService) List(ctx context.Context, caller *models.User) ([]*models.Program, error) {
	programs, err := s.repomanager.Programs(s.db).List(ctx, !caller.IsAdmin())
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	return programs, nil
}

func (s *ProgramService) Create(ctx context.Context, in ProgramInput) (*models.Program, error) {
	if isBlank(in.Name) || isBlank(in.Description) || isBlank(in.ApplicationStartDate) ||
		isBlank(in.ApplicationEndDate) || isBlank(in.Status) {
		return nil, fmt.Errorf("%w: All fields must be filled", common.ErrorValidation)
	}

	p := &models.Program{}
	if err := applyProgramInput(p, in); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Programs(s.db).Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("error creating program: %w", err)
	}

	s.log.Info(ctx, "program created", "program_id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies the provided fields and leaves the rest unchanged.
func (s *ProgramService) Update(ctx context.Context, id int64, in ProgramInput) (*models.Program, error) {
	repo := s.repomanager.Programs(s.db)

	p, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Program not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching program: %w", err)
	}

	if err := applyProgramInput(p, in); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, p); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Program not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error updating program: %w", err)
	}

	return p, nil
}

// Delete removes the program and its reports in one transaction, then
// removes the stored files. A file that cannot be removed is recorded in the
// orphan ledger for the sweeper; the deletion itself still succeeds.
func (s *ProgramService) Delete(ctx context.Context, id int64) error {
	var blobs []string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		programs := s.repomanager.Programs(tx)
		reports := s.repomanager.Reports(tx)

		if _, err := programs.Get(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: Program not found", common.ErrorNotFound)
			}
			return fmt.Errorf("error searching program: %w", err)
		}

		names, err := reports.DeleteByProgram(ctx, id)
		if err != nil {
			return fmt.Errorf("error deleting reports: %w", err)
		}

		if err := programs.Delete(ctx, id); err != nil {
			return fmt.Errorf("error deleting program: %w", err)
		}

		blobs = names
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "program deleted", "program_id", id, "reports", len(blobs))
	s.removeBlobs(ctx, blobs)
	return nil
}

func (s *ProgramService) removeBlobs(ctx context.Context, names []string) {
	orphans := s.repomanager.Orphans(s.db)
	for _, name := range names {
		err := s.store.Remove(ctx, name)
		if err == nil {
			continue
		}
		s.log.Warn(ctx, "report file removal failed, recording orphan", "blob", name, "error", err)
		if err := orphans.Create(ctx, name, err.Error()); err != nil {
			s.log.Error(ctx, "failed to record orphaned file", "blob", name, "error", err)
		}
	}
}

func isBlank(s *string) bool {
	return s == nil || blank(*s)
}

func applyProgramInput(p *models.Program, in ProgramInput) error {
	if in.Name != nil {
		if blank(*in.Name) {
			return fmt.Errorf("%w: name must not be empty", common.ErrorValidation)
		}
		if tooLong(*in.Name, common.MaxProgramNameLength) {
			return fmt.Errorf("%w: name must be at most %d characters", common.ErrorValidation, common.MaxProgramNameLength)
		}
		p.Name = *in.Name
	}
	if in.Description != nil {
		if blank(*in.Description) {
			return fmt.Errorf("%w: description must not be empty", common.ErrorValidation)
		}
		p.Description = *in.Description
	}
	if in.ApplicationStartDate != nil {
		t, err := parseProgramDate("application_start_date", *in.ApplicationStartDate)
		if err != nil {
			return err
		}
		p.ApplicationStartDate = t
	}
	if in.ApplicationEndDate != nil {
		t, err := parseProgramDate("application_end_date", *in.ApplicationEndDate)
		if err != nil {
			return err
		}
		p.ApplicationEndDate = t
	}
	if in.Status != nil {
		switch *in.Status {
		case common.ProgramStatusOpen, common.ProgramStatusClosed:
			p.Status = *in.Status
		default:
			return fmt.Errorf("%w: status must be %s or %s", common.ErrorValidation,
				common.ProgramStatusOpen, common.ProgramStatusClosed)
		}
	}
	return nil
}

func parseProgramDate(field, value string) (time.Time, error) {
	t, err := timex.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q", common.ErrorValidation, field, value)
	}
	return t, nil
}
