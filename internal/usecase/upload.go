package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/semmidev/archivist/internal/domain"
	"golang.org/x/sync/errgroup"
)

type UploadTarget struct {
	Name    string
	Storage domain.RemoteStorage
}

// UploadOptions selects and handles the files of one upload pass.
type UploadOptions struct {
	Extensions        []string
	DayDelta          int
	DeleteAfterUpload bool
	MaxWorkers        int
	DryRun            bool
}

type UploadStats struct {
	Uploaded int
	Skipped  int
	Failed   int
	Deleted  int
	Bytes    int64
}

type uploadSource interface {
	FileStore
	GetPath(filename string) string
}

// Upload ships recent archives off-site, verifying each copy.
type Upload struct {
	localStorage uploadSource
	targets      []UploadTarget
	opts         UploadOptions
	logger       Logger
	now          func() time.Time

	mu    sync.Mutex
	stats UploadStats
}

func NewUpload(localStorage uploadSource, targets []UploadTarget, opts UploadOptions, logger Logger) *Upload {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	return &Upload{
		localStorage: localStorage,
		targets:      targets,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

func (uc *Upload) Execute(ctx context.Context) (UploadStats, error) {
	uc.stats = UploadStats{}

	if len(uc.targets) == 0 {
		uc.logger.Warnf("No upload targets enabled")
		return uc.stats, nil
	}
	if uc.opts.DryRun {
		uc.logger.Infof("Dry run: nothing will be uploaded or deleted")
	}

	files, err := uc.selectFiles(ctx)
	if err != nil {
		return uc.stats, err
	}
	if len(files) == 0 {
		uc.logger.Infof("No files to upload")
		return uc.stats, nil
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	uc.logger.Infof("Found %d file(s) to upload, total %.2f MB", len(files), float64(total)/(1024*1024))

	var g errgroup.Group
	g.SetLimit(uc.opts.MaxWorkers)
	for _, file := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			uc.uploadFile(ctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return uc.stats, err
	}

	uc.logger.Infof("Upload finished: uploaded %d, skipped %d, failed %d, deleted %d, transferred %.2f MB",
		uc.stats.Uploaded, uc.stats.Skipped, uc.stats.Failed, uc.stats.Deleted, float64(uc.stats.Bytes)/(1024*1024))

	if uc.stats.Failed > 0 {
		return uc.stats, fmt.Errorf("%d upload(s) failed", uc.stats.Failed)
	}
	return uc.stats, nil
}

// selectFiles returns matching files modified within DayDelta days, oldest first.
func (uc *Upload) selectFiles(ctx context.Context) ([]domain.FileInfo, error) {
	files, err := uc.localStorage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	cutoff := uc.now().Add(-time.Duration(uc.opts.DayDelta) * 24 * time.Hour)
	var selected []domain.FileInfo
	for _, f := range files {
		if !slices.Contains(uc.opts.Extensions, filepath.Ext(f.Name)) {
			continue
		}
		if f.ModTime.Before(cutoff) {
			continue
		}
		selected = append(selected, f)
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].ModTime.Before(selected[j].ModTime)
	})
	return selected, nil
}

func (uc *Upload) uploadFile(ctx context.Context, file domain.FileInfo) {
	localPath := uc.localStorage.GetPath(file.Name)

	uploadedEverywhere := true
	for _, target := range uc.targets {
		if !uc.uploadToTarget(ctx, target, localPath, file) {
			uploadedEverywhere = false
		}
	}

	if !uploadedEverywhere || !uc.opts.DeleteAfterUpload || uc.opts.DryRun {
		return
	}
	if err := uc.localStorage.Delete(ctx, file.Name); err != nil {
		uc.logger.Errorf("Failed to delete local file %s: %v", file.Name, err)
		return
	}
	uc.record(func(s *UploadStats) { s.Deleted++ })
	uc.logger.Infof("Deleted local file: %s", localPath)
}

// uploadToTarget reports whether a fresh, verified copy now exists on target.
func (uc *Upload) uploadToTarget(ctx context.Context, target UploadTarget, localPath string, file domain.FileInfo) bool {
	_, err := target.Storage.Stat(ctx, file.Name)
	switch {
	case err == nil:
		uc.logger.Infof("Skipped %s: already exists on %s", file.Name, target.Name)
		uc.record(func(s *UploadStats) { s.Skipped++ })
		return false
	case !errors.Is(err, domain.ErrObjectNotFound):
		uc.logger.Errorf("Failed to check %s on %s: %v", file.Name, target.Name, err)
		uc.record(func(s *UploadStats) { s.Failed++ })
		return false
	}

	if uc.opts.DryRun {
		uc.logger.Infof("[DRY-RUN] Would upload %s to %s (%.2f MB)", file.Name, target.Name, float64(file.Size)/(1024*1024))
		return false
	}

	uc.logger.Infof("Uploading %s to %s (%.2f MB)...", file.Name, target.Name, float64(file.Size)/(1024*1024))
	metadata := map[string]string{
		"original-path": localPath,
		"upload-date":   uc.now().Format(time.RFC3339),
	}
	if err := target.Storage.Upload(ctx, localPath, file.Name, metadata); err != nil {
		uc.logger.Errorf("Failed to upload %s to %s: %v", file.Name, target.Name, err)
		uc.record(func(s *UploadStats) { s.Failed++ })
		return false
	}

	if err := uc.verify(ctx, target, localPath, file); err != nil {
		uc.logger.Errorf("Verification failed for %s on %s: %v", file.Name, target.Name, err)
		if derr := target.Storage.Delete(ctx, file.Name); derr != nil {
			uc.logger.Errorf("Failed to remove unverified %s from %s: %v", file.Name, target.Name, derr)
		}
		uc.record(func(s *UploadStats) { s.Failed++ })
		return false
	}

	uc.logger.Infof("Uploaded %s to %s", file.Name, target.Name)
	uc.record(func(s *UploadStats) {
		s.Uploaded++
		s.Bytes += file.Size
	})
	return true
}

// verify compares MD5 when the remote reports it, size otherwise.
func (uc *Upload) verify(ctx context.Context, target UploadTarget, localPath string, file domain.FileInfo) error {
	remote, err := target.Storage.Stat(ctx, file.Name)
	if err != nil {
		return fmt.Errorf("stat uploaded object: %w", err)
	}

	if remote.Multipart || remote.Checksum == "" {
		if remote.Size != file.Size {
			return fmt.Errorf("size mismatch: local %d, remote %d", file.Size, remote.Size)
		}
		return nil
	}

	sum, err := fileMD5(localPath)
	if err != nil {
		return err
	}
	if sum != remote.Checksum {
		return fmt.Errorf("md5 mismatch: local %s, remote %s", sum, remote.Checksum)
	}
	return nil
}

func (uc *Upload) record(update func(*UploadStats)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	update(&uc.stats)
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
