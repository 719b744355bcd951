package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/blobstore"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/repomanager"
)

const sweepBatchSize = 100

// BlobSweeper periodically retries removal of files recorded in the orphan
// ledger and purges expired refresh tokens.
type BlobSweeper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	interval    time.Duration
	log         logging.Logger
}

func NewBlobSweeper(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, interval time.Duration, log logging.Logger) *BlobSweeper {
	return &BlobSweeper{
		db:          db,
		repomanager: m,
		store:       store,
		interval:    interval,
		log:         log.With("module", "sweeper"),
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *BlobSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Warn(ctx, "sweeper disabled", "interval", s.interval.String())
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
			s.PurgeExpiredSessions(ctx)
		}
	}
}

// SweepOnce processes one batch of the ledger and returns how many files
// were removed.
func (s *BlobSweeper) SweepOnce(ctx context.Context) int {
	repo := s.repomanager.Orphans(s.db)

	items, err := repo.List(ctx, sweepBatchSize)
	if err != nil {
		s.log.Error(ctx, "failed to list orphaned files", "error", err)
		return 0
	}

	removed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		s.log.Debug(ctx, "retrying orphaned file removal", "blob", item.BlobName, "attempts", item.Attempts, "last_error", item.LastError)
		if err := s.store.Remove(ctx, item.BlobName); err != nil {
			s.log.Warn(ctx, "orphaned file removal failed", "blob", item.BlobName, "attempts", item.Attempts+1, "error", err)
			if err := repo.MarkFailed(ctx, item.BlobName, err.Error()); err != nil {
				s.log.Error(ctx, "failed to update orphan ledger", "blob", item.BlobName, "error", err)
			}
			continue
		}
		if err := repo.Delete(ctx, item.BlobName); err != nil {
			s.log.Error(ctx, "failed to clear orphan ledger entry", "blob", item.BlobName, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info(ctx, "orphaned files removed", "count", removed)
	}
	return removed
}

// PurgeExpiredSessions deletes refresh tokens that can no longer be redeemed.
func (s *BlobSweeper) PurgeExpiredSessions(ctx context.Context) int64 {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
	if err != nil {
		s.log.Error(ctx, "failed to purge expired sessions", "error", err)
		return 0
	}
	if n > 0 {
		s.log.Info(ctx, "expired sessions purged", "count", n)
	}
	return n
}
