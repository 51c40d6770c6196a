package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/semmidev/archivist/internal/adapter/storage"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/lock"

	. "github.com/smartystreets/goconvey/convey"
)

func filesWithExt(dir, ext string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestBackup(t *testing.T) {
	Convey("Given a backup job over a temp directory", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		backupDir := filepath.Join(tempDir, "backups")
		lockPath := filepath.Join(tempDir, "archivist.lock")

		log := &testLogger{}
		local := storage.NewLocal(backupDir)
		db := &fakeDatabase{name: "db", content: strings.Repeat("row\n", 250)}
		arch := &fakeArchiver{}
		notifier := &fakeNotifier{}
		policy := domain.RetentionPolicy{DailyDays: 61, MonthlyDays: 365, MonthlyDay: 15}
		pruner := NewPrune(local, "db", policy, log, false)
		acquire := func() (Lock, error) {
			l, err := lock.Acquire(lockPath)
			if err != nil {
				return nil, err
			}
			return l, nil
		}
		var preflightErr error
		preflight := func() error { return preflightErr }

		job := NewBackup(db, arch, local, pruner, acquire, preflight, []domain.Notifier{notifier}, log)
		ctx := context.Background()

		lockGone := func() bool {
			_, err := os.Stat(lockPath)
			return os.IsNotExist(err)
		}

		Convey("When every stage succeeds", func() {
			report, err := job.Execute(ctx)

			Convey("It should end DONE with only the archive left", func() {
				So(err, ShouldBeNil)
				So(report.State, ShouldEqual, domain.StateDone)
				So(filesWithExt(backupDir, domain.DumpExt), ShouldBeEmpty)
				So(filesWithExt(backupDir, domain.ArchiveExt), ShouldResemble, []string{report.ArchiveFile})
				So(arch.tested, ShouldResemble, []string{filepath.Join(backupDir, report.ArchiveFile)})
				So(lockGone(), ShouldBeTrue)
			})

			Convey("It should record sizes and the integer ratio", func() {
				So(report.DumpSize, ShouldEqual, 1000)
				So(report.ArchiveSize, ShouldEqual, 500)
				So(report.Ratio, ShouldEqual, 50)
				So(log.contains("50% of original"), ShouldBeTrue)
			})

			Convey("It should name the archive after the database and capture time", func() {
				_, err := domain.ParseArtifact(report.ArchiveFile, "db", domain.ArchiveExt)
				So(err, ShouldBeNil)
			})

			Convey("It should log every transition and notify once", func() {
				So(log.contains("START -> LOCK_ACQUIRED"), ShouldBeTrue)
				So(log.contains("VERIFIED -> PRUNED"), ShouldBeTrue)
				So(log.contains("PRUNED -> DONE"), ShouldBeTrue)
				So(report.State.Terminal(), ShouldBeTrue)
				So(notifier.reports, ShouldHaveLength, 1)
				So(notifier.reports[0].State, ShouldEqual, domain.StateDone)
			})
		})

		Convey("When the lock marker already exists", func() {
			So(os.WriteFile(lockPath, []byte("other"), 0644), ShouldBeNil)

			report, err := job.Execute(ctx)

			Convey("It should fail without touching anything", func() {
				So(errors.Is(err, domain.ErrAlreadyRunning), ShouldBeTrue)
				So(report.State, ShouldEqual, domain.StateFailed)
				So(report.State.Terminal(), ShouldBeTrue)
				So(db.calls, ShouldEqual, 0)
				_, statErr := os.Stat(backupDir)
				So(os.IsNotExist(statErr), ShouldBeTrue)
				content, _ := os.ReadFile(lockPath)
				So(string(content), ShouldEqual, "other")
			})
		})

		Convey("When a dependency is missing", func() {
			preflightErr = domain.ErrMissingDependency
			_, err := job.Execute(ctx)

			Convey("It should fail before dumping and release the lock", func() {
				So(errors.Is(err, domain.ErrMissingDependency), ShouldBeTrue)
				So(db.calls, ShouldEqual, 0)
				So(lockGone(), ShouldBeTrue)
			})
		})

		Convey("When the backup directory cannot be created", func() {
			So(os.WriteFile(backupDir, []byte("not a dir"), 0644), ShouldBeNil)
			_, err := job.Execute(ctx)

			Convey("It should fail with ErrBackupDirectory", func() {
				So(errors.Is(err, domain.ErrBackupDirectory), ShouldBeTrue)
				So(db.calls, ShouldEqual, 0)
				So(lockGone(), ShouldBeTrue)
			})
		})

		Convey("When the dump tool fails", func() {
			db.err = errors.Join(domain.ErrDumpFailed, errors.New("exit 1"))
			report, err := job.Execute(ctx)

			Convey("It should fail with no archive and no lock", func() {
				So(errors.Is(err, domain.ErrDumpFailed), ShouldBeTrue)
				So(report.State, ShouldEqual, domain.StateFailed)
				So(filesWithExt(backupDir, domain.ArchiveExt), ShouldBeEmpty)
				So(arch.archived, ShouldBeEmpty)
				So(lockGone(), ShouldBeTrue)
				So(log.contains("LOCK_ACQUIRED -> CLEANUP"), ShouldBeTrue)
				So(log.contains("CLEANUP -> FAILED"), ShouldBeTrue)
				So(log.contains("dump failed"), ShouldBeTrue)
			})

			Convey("It should notify the failure", func() {
				So(notifier.reports, ShouldHaveLength, 1)
				So(errors.Is(notifier.reports[0].Err, domain.ErrDumpFailed), ShouldBeTrue)
			})
		})

		Convey("When the archive tool fails", func() {
			arch.archiveErr = domain.ErrArchiveFailed
			_, err := job.Execute(ctx)

			Convey("It should keep the dump for inspection", func() {
				So(errors.Is(err, domain.ErrArchiveFailed), ShouldBeTrue)
				So(filesWithExt(backupDir, domain.DumpExt), ShouldHaveLength, 1)
				So(arch.tested, ShouldBeEmpty)
				So(lockGone(), ShouldBeTrue)
			})
		})

		Convey("When the archive fails verification", func() {
			arch.testErr = domain.ErrArchiveCorrupted
			report, err := job.Execute(ctx)

			Convey("The dump is gone but the archive is kept", func() {
				So(errors.Is(err, domain.ErrArchiveCorrupted), ShouldBeTrue)
				So(report.State, ShouldEqual, domain.StateFailed)
				So(filesWithExt(backupDir, domain.DumpExt), ShouldBeEmpty)
				So(filesWithExt(backupDir, domain.ArchiveExt), ShouldHaveLength, 1)
				So(lockGone(), ShouldBeTrue)
			})
		})

		Convey("When old archives are present", func() {
			So(os.MkdirAll(backupDir, 0750), ShouldBeNil)
			old := filepath.Join(backupDir, "db_2020-01-10_03-00.7z")
			So(os.WriteFile(old, []byte("old"), 0600), ShouldBeNil)
			stamp := time.Now().Add(-100 * 24 * time.Hour)
			So(os.Chtimes(old, stamp, stamp), ShouldBeNil)

			report, err := job.Execute(ctx)

			Convey("It should prune them after verifying", func() {
				So(err, ShouldBeNil)
				So(report.Pruned.Deleted, ShouldEqual, 1)
				_, statErr := os.Stat(old)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When the run is interrupted after verification", func() {
			So(os.MkdirAll(backupDir, 0750), ShouldBeNil)
			old := filepath.Join(backupDir, "db_2020-01-10_03-00.7z")
			So(os.WriteFile(old, []byte("old"), 0600), ShouldBeNil)
			stamp := time.Now().Add(-100 * 24 * time.Hour)
			So(os.Chtimes(old, stamp, stamp), ShouldBeNil)

			interrupted, cancel := context.WithCancel(ctx)
			defer cancel()
			arch.afterTest = cancel

			report, err := job.Execute(interrupted)

			Convey("It should fail instead of reporting success", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(report.State, ShouldEqual, domain.StateFailed)
				So(report.State.Terminal(), ShouldBeTrue)
				So(log.contains("ARCHIVED -> CLEANUP"), ShouldBeTrue)
				So(log.contains("CLEANUP -> FAILED"), ShouldBeTrue)
				So(log.contains("-> PRUNED"), ShouldBeFalse)
				So(lockGone(), ShouldBeTrue)
			})

			Convey("It should leave pruning for the next run", func() {
				_, statErr := os.Stat(old)
				So(statErr, ShouldBeNil)
				So(report.Pruned.Deleted, ShouldEqual, 0)
			})

			Convey("It should still notify the failure", func() {
				So(notifier.reports, ShouldHaveLength, 1)
				So(notifier.reports[0].State, ShouldEqual, domain.StateFailed)
			})
		})

		Convey("When a notifier fails", func() {
			notifier.err = errors.New("telegram down")
			_, err := job.Execute(ctx)

			Convey("It should not fail the job", func() {
				So(err, ShouldBeNil)
				So(log.contains("Notification failed"), ShouldBeTrue)
			})
		})
	})
}
