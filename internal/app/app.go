package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/semmidev/archivist/internal/adapter/archiver"
	"github.com/semmidev/archivist/internal/adapter/database"
	"github.com/semmidev/archivist/internal/adapter/notify"
	"github.com/semmidev/archivist/internal/adapter/storage"
	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/command"
	"github.com/semmidev/archivist/internal/infrastructure/lock"
	"github.com/semmidev/archivist/internal/infrastructure/logger"
	"github.com/semmidev/archivist/internal/infrastructure/scheduler"
	"github.com/semmidev/archivist/internal/usecase"
)

type Options struct {
	// DryRun applies to prune and upload.
	DryRun bool
}

type App struct {
	config       *config.Config
	logger       *logger.Logger
	localStorage *storage.LocalStorage
	database     domain.Database
	backupUC     *usecase.Backup
	opts         Options
}

func New(cfg *config.Config, opts Options) (*App, error) {
	log, err := logger.New(logger.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	runner := command.NewExecRunner()

	db, err := database.New(&cfg.Database, runner)
	if err != nil {
		log.Close()
		return nil, err
	}

	arch := archiver.NewSevenZip(&cfg.Archive, runner)
	localStorage := storage.NewLocal(cfg.Backup.Directory)

	a := &App{
		config:       cfg,
		logger:       log,
		localStorage: localStorage,
		database:     db,
		opts:         opts,
	}

	a.backupUC = usecase.NewBackup(
		db,
		arch,
		localStorage,
		a.newPrune(false),
		a.acquireLock,
		func() error { return command.Require(db.Binary(), arch.Binary()) },
		initializeNotifiers(cfg, log),
		log,
	)

	return a, nil
}

func (a *App) acquireLock() (usecase.Lock, error) {
	l, err := lock.Acquire(a.config.Backup.LockFile)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (a *App) newPrune(dryRun bool) *usecase.Prune {
	return usecase.NewPrune(
		a.localStorage,
		a.database.GetName(),
		a.config.Backup.Retention,
		a.logger,
		dryRun,
	)
}

func initializeNotifiers(cfg *config.Config, log *logger.Logger) []domain.Notifier {
	var notifiers []domain.Notifier

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			log.Errorf("Failed to initialize Telegram: %v", err)
		} else {
			notifiers = append(notifiers, tg)
			log.Infof("✓ Telegram notifications enabled")
		}
	}

	return notifiers
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	if cfg.Upload.S3.Enabled {
		s3, err := storage.NewS3(ctx, &cfg.Upload.S3)
		if err != nil {
			log.Errorf("Failed to initialize S3: %v", err)
		} else {
			targets = append(targets, usecase.UploadTarget{Name: "s3", Storage: s3})
			log.Infof("✓ S3 upload enabled (bucket: %s)", cfg.Upload.S3.Bucket)
		}
	}

	if cfg.Upload.GDrive.Enabled {
		gdrive, err := storage.NewGDrive(ctx, &cfg.Upload.GDrive)
		if err != nil {
			log.Errorf("Failed to initialize Google Drive: %v", err)
		} else {
			targets = append(targets, usecase.UploadTarget{Name: "gdrive", Storage: gdrive})
			log.Infof("✓ Google Drive upload enabled")
		}
	}

	return targets
}

// Backup runs the full job once.
func (a *App) Backup(ctx context.Context) error {
	_, err := a.backupUC.Execute(ctx)
	return err
}

// Prune applies the retention policy alone, under the same lock as the job.
func (a *App) Prune(ctx context.Context) (err error) {
	lk, err := a.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, lk.Release())
	}()

	_, err = a.newPrune(a.opts.DryRun).Execute(ctx)
	return err
}

// Upload ships recent archives to every enabled target. It holds the lock so a half-written
// archive is never picked up.
func (a *App) Upload(ctx context.Context) (err error) {
	lk, err := a.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, lk.Release())
	}()

	uc := usecase.NewUpload(
		a.localStorage,
		initializeUploadTargets(ctx, a.config, a.logger),
		usecase.UploadOptions{
			Extensions:        a.config.Upload.Extensions,
			DayDelta:          a.config.Upload.DayDelta,
			DeleteAfterUpload: a.config.Upload.DeleteAfterUpload,
			MaxWorkers:        a.config.Upload.MaxWorkers,
			DryRun:            a.opts.DryRun,
		},
		a.logger,
	)
	_, err = uc.Execute(ctx)
	return err
}

// Serve runs the job, and optionally the upload, on the configured schedule until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	sched := scheduler.New(a.logger)

	a.logger.Infof("Scheduling backup of %s: %s", a.database.GetName(), a.config.Schedule.Backup)
	if err := sched.AddJob(a.config.Schedule.Backup, "backup", a.Backup); err != nil {
		return err
	}

	if spec := a.config.Schedule.Upload; spec != "" {
		a.logger.Infof("Scheduling upload: %s", spec)
		if err := sched.AddJob(spec, "upload", a.Upload); err != nil {
			return err
		}
	}

	sched.Start(ctx)
	a.logger.Infof("Scheduler started")

	<-ctx.Done()
	a.logger.Infof("Stopping scheduler...")
	sched.Stop()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Close()
}
