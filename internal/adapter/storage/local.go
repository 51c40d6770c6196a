package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semmidev/archivist/internal/domain"
)

// LocalStorage is the backup directory. Every name it accepts is a bare file name inside basePath.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) *LocalStorage {
	return &LocalStorage{basePath: filepath.Clean(basePath)}
}

// EnsureDir creates the backup directory if needed.
func (l *LocalStorage) EnsureDir() error {
	if err := os.MkdirAll(l.basePath, 0750); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrBackupDirectory, l.basePath, err)
	}
	return nil
}

// List returns the regular files directly under the backup directory.
func (l *LocalStorage) List(ctx context.Context) ([]domain.FileInfo, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []domain.FileInfo
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Vanished between ReadDir and Info.
			continue
		}
		files = append(files, domain.FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

func (l *LocalStorage) Stat(name string) (domain.FileInfo, error) {
	path, err := l.resolve(name)
	if err != nil {
		return domain.FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return domain.FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, name string) error {
	path, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetPath joins filename onto the backup directory.
func (l *LocalStorage) GetPath(filename string) string {
	return filepath.Join(l.basePath, filename)
}

func (l *LocalStorage) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(l.basePath, name), nil
}
