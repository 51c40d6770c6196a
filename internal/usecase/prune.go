package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/semmidev/archivist/internal/domain"
)

// FileStore lists and deletes files in one directory.
type FileStore interface {
	List(ctx context.Context) ([]domain.FileInfo, error)
	Delete(ctx context.Context, name string) error
}

// Prune applies the retention policy to the archives of one database.
type Prune struct {
	storage  FileStore
	database string
	policy   domain.RetentionPolicy
	logger   Logger
	dryRun   bool
	now      func() time.Time
}

func NewPrune(
	storage FileStore,
	database string,
	policy domain.RetentionPolicy,
	logger Logger,
	dryRun bool,
) *Prune {
	return &Prune{
		storage:  storage,
		database: database,
		policy:   policy,
		logger:   logger,
		dryRun:   dryRun,
		now:      time.Now,
	}
}

// Execute deletes expired archives. Per-file failures are logged and counted, never returned;
// an error means the directory could not be listed or ctx was cancelled.
func (uc *Prune) Execute(ctx context.Context) (domain.PruneResult, error) {
	var result domain.PruneResult

	uc.logger.Infof("[%s] Pruning archives: daily %d days, day %d kept %d days",
		uc.database, uc.policy.DailyDays, uc.policy.MonthlyDay, uc.policy.MonthlyDays)

	files, err := uc.storage.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list archives: %w", err)
	}

	now := uc.now()
	var daily, monthly int
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		artifact, err := domain.ParseArtifact(file.Name, uc.database, domain.ArchiveExt)
		if err != nil {
			continue
		}
		result.Matched++

		if !uc.policy.Expired(artifact, file.ModTime, now) {
			continue
		}

		if uc.dryRun {
			uc.logger.Infof("[%s] Would delete %s (modified %s)", uc.database, file.Name, file.ModTime.Format(time.DateTime))
			continue
		}

		if err := uc.storage.Delete(ctx, file.Name); err != nil {
			uc.logger.Errorf("[%s] Failed to delete %s: %v", uc.database, file.Name, err)
			result.Failed++
			continue
		}

		result.Deleted++
		if uc.policy.IsMonthly(artifact) {
			monthly++
		} else {
			daily++
		}
	}

	uc.logger.Infof("[%s] Deleted %d old archive(s) (%d daily, %d monthly) of %d matched, %d failed",
		uc.database, result.Deleted, daily, monthly, result.Matched, result.Failed)

	return result, nil
}
