package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/semmidev/archivist/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// LocalStorage is the backup directory as the job sees it.
type LocalStorage interface {
	FileStore
	EnsureDir() error
	Stat(name string) (domain.FileInfo, error)
	GetPath(filename string) string
}

// Lock is a held single-flight marker.
type Lock interface {
	Release() error
}

// LockFunc acquires the marker or fails with domain.ErrAlreadyRunning.
type LockFunc func() (Lock, error)

// notifyTimeout bounds the report delivery, which may run after the job context was cancelled.
const notifyTimeout = 30 * time.Second

// Backup runs the dump, archive, verify and prune stages under the lock.
type Backup struct {
	db           domain.Database
	archiver     domain.Archiver
	localStorage LocalStorage
	pruner       *Prune
	acquire      LockFunc
	preflight    func() error
	notifiers    []domain.Notifier
	logger       Logger
	now          func() time.Time
}

func NewBackup(
	db domain.Database,
	archiver domain.Archiver,
	localStorage LocalStorage,
	pruner *Prune,
	acquire LockFunc,
	preflight func() error,
	notifiers []domain.Notifier,
	logger Logger,
) *Backup {
	if preflight == nil {
		preflight = func() error { return nil }
	}
	return &Backup{
		db:           db,
		archiver:     archiver,
		localStorage: localStorage,
		pruner:       pruner,
		acquire:      acquire,
		preflight:    preflight,
		notifiers:    notifiers,
		logger:       logger,
		now:          time.Now,
	}
}

// Execute runs the whole job once. The returned report is never nil.
func (uc *Backup) Execute(ctx context.Context) (report *domain.Report, err error) {
	start := uc.now()
	dbName := uc.db.GetName()
	report = &domain.Report{DatabaseName: dbName, State: domain.StateStart}

	uc.logger.Infof("[%s] Starting backup...", dbName)

	lk, err := uc.acquire()
	if err != nil {
		report.Err = err
		uc.transition(report, domain.StateFailed)
		uc.logger.Errorf("[%s] Backup not started: %v", dbName, err)
		return report, err
	}
	uc.transition(report, domain.StateLockAcquired)

	defer func() {
		if err != nil {
			uc.transition(report, domain.StateCleanup)
		}
		if rerr := lk.Release(); rerr != nil {
			uc.logger.Errorf("[%s] Failed to release lock: %v", dbName, rerr)
			if err == nil {
				err = rerr
			}
		}

		report.Duration = uc.now().Sub(start)
		if err != nil {
			report.Err = err
			uc.transition(report, domain.StateFailed)
			uc.logger.Errorf("[%s] Backup failed after %s: %v", dbName, report.Duration.Round(time.Second), err)
		} else {
			uc.transition(report, domain.StateDone)
			uc.logger.Infof("[%s] Backup completed in %s: %s",
				dbName, report.Duration.Round(time.Second), report.ArchiveFile)
		}

		uc.notify(ctx, report)
	}()

	err = uc.run(ctx, report)
	return report, err
}

func (uc *Backup) run(ctx context.Context, report *domain.Report) error {
	dbName := uc.db.GetName()

	if err := uc.preflight(); err != nil {
		return err
	}
	if err := uc.localStorage.EnsureDir(); err != nil {
		return err
	}

	dump := domain.NewArtifact(dbName, uc.now(), domain.DumpExt)
	archive := dump.WithExt(domain.ArchiveExt)
	dumpPath := uc.localStorage.GetPath(dump.Filename())
	archivePath := uc.localStorage.GetPath(archive.Filename())
	report.DumpFile = dump.Filename()

	uc.logger.Infof("[%s] Creating dump: %s", dbName, dumpPath)
	if err := uc.db.Dump(ctx, dumpPath); err != nil {
		return err
	}

	dumpInfo, err := uc.localStorage.Stat(dump.Filename())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDumpFailed, err)
	}
	report.DumpSize = dumpInfo.Size
	uc.logger.Infof("[%s] Dump created, size: %.2f MB", dbName, float64(dumpInfo.Size)/(1024*1024))
	if err := uc.advance(ctx, report, domain.StateDumped); err != nil {
		return err
	}

	uc.logger.Infof("[%s] Archiving to: %s", dbName, archivePath)
	if err := uc.archiver.Archive(ctx, dumpPath, archivePath); err != nil {
		return err
	}
	report.ArchiveFile = archive.Filename()

	// The plaintext dump must not survive a successful archive.
	if err := uc.localStorage.Delete(ctx, dump.Filename()); err != nil {
		return fmt.Errorf("remove plaintext dump: %w", err)
	}
	report.DumpFile = ""

	archiveInfo, err := uc.localStorage.Stat(archive.Filename())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArchiveFailed, err)
	}
	report.ArchiveSize = archiveInfo.Size
	report.Ratio = domain.CompressionRatio(report.DumpSize, report.ArchiveSize)
	uc.logger.Infof("[%s] Archive created, size: %.2f MB (%d%% of original)",
		dbName, float64(archiveInfo.Size)/(1024*1024), report.Ratio)
	if err := uc.advance(ctx, report, domain.StateArchived); err != nil {
		return err
	}

	if err := uc.archiver.Test(ctx, archivePath); err != nil {
		return err
	}
	uc.logger.Infof("[%s] Archive verified", dbName)
	if err := uc.advance(ctx, report, domain.StateVerified); err != nil {
		return err
	}

	result, err := uc.pruner.Execute(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("prune interrupted: %w", err)
	case err != nil:
		uc.logger.Warnf("[%s] Pruning incomplete: %v", dbName, err)
	}
	report.Pruned = result
	return uc.advance(ctx, report, domain.StatePruned)
}

// advance moves to the next stage unless the run was interrupted.
func (uc *Backup) advance(ctx context.Context, report *domain.Report, next domain.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted before %s: %w", next, err)
	}
	uc.transition(report, next)
	return nil
}

func (uc *Backup) transition(report *domain.Report, next domain.State) {
	if report.State.Terminal() {
		uc.logger.Errorf("[%s] Ignoring transition %s -> %s", report.DatabaseName, report.State, next)
		return
	}
	uc.logger.Infof("[%s] State %s -> %s", report.DatabaseName, report.State, next)
	report.State = next
}

func (uc *Backup) notify(ctx context.Context, report *domain.Report) {
	if len(uc.notifiers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			uc.logger.Warnf("[%s] Notification failed: %v", report.DatabaseName, err)
		}
	}
}
