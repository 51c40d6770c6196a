// Package lock implements the single-flight marker that keeps two runs of the job apart.
// It is advisory and single-host.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/semmidev/archivist/internal/domain"
)

type Lock struct {
	path string
	once sync.Once
	err  error
}

// Acquire creates the marker at path. It fails with domain.ErrAlreadyRunning when the marker
// already exists and leaves it untouched.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: lock %s is held", domain.ErrAlreadyRunning, path)
		}
		return nil, fmt.Errorf("create lock: %w", err)
	}

	// The pid is for operators only; the marker's existence is what matters.
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock: %w", errors.Join(werr, cerr))
	}

	return &Lock{path: path}, nil
}

func (l *Lock) Path() string {
	return l.path
}

// Release removes the marker. Safe to call more than once.
func (l *Lock) Release() error {
	l.once.Do(func() {
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.err = fmt.Errorf("remove lock: %w", err)
		}
	})
	return l.err
}
