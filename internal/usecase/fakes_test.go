package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/semmidev/archivist/internal/domain"
)

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) logf(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *testLogger) Infof(template string, args ...interface{})  { l.logf("INFO", template, args...) }
func (l *testLogger) Warnf(template string, args ...interface{})  { l.logf("WARN", template, args...) }
func (l *testLogger) Errorf(template string, args ...interface{}) { l.logf("ERROR", template, args...) }

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type fakeDatabase struct {
	name    string
	content string
	err     error
	calls   int
}

func (d *fakeDatabase) Dump(_ context.Context, outputPath string) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(outputPath, []byte(d.content), 0600)
}

func (d *fakeDatabase) GetName() string { return d.name }
func (d *fakeDatabase) GetType() string { return "fake" }
func (d *fakeDatabase) Binary() string  { return "fake_dump" }

type fakeArchiver struct {
	archiveErr error
	testErr    error
	archived   []string
	tested     []string
	// afterTest runs once the archive has passed its test.
	afterTest func()
}

// Archive writes the first half of the source as the "compressed" archive.
func (a *fakeArchiver) Archive(_ context.Context, sourcePath, archivePath string) error {
	a.archived = append(a.archived, archivePath)
	if a.archiveErr != nil {
		return a.archiveErr
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(archivePath, data[:len(data)/2], 0600)
}

func (a *fakeArchiver) Test(_ context.Context, archivePath string) error {
	a.tested = append(a.tested, archivePath)
	if a.testErr == nil && a.afterTest != nil {
		a.afterTest()
	}
	return a.testErr
}

func (a *fakeArchiver) Binary() string { return "fake_7z" }

type fakeNotifier struct {
	reports []domain.Report
	err     error
}

func (n *fakeNotifier) Notify(_ context.Context, report *domain.Report) error {
	n.reports = append(n.reports, *report)
	return n.err
}

// failingStore wraps a FileStore and refuses to delete the listed names.
type failingStore struct {
	FileStore
	refuse map[string]bool
}

func (s *failingStore) Delete(ctx context.Context, name string) error {
	if s.refuse[name] {
		return errors.New("permission denied")
	}
	return s.FileStore.Delete(ctx, name)
}

type remoteCopy struct {
	data      []byte
	checksum  string
	multipart bool
}

// memoryRemote is an in-memory domain.RemoteStorage.
type memoryRemote struct {
	mu        sync.Mutex
	objects   map[string]remoteCopy
	corrupt   bool
	multipart bool
	uploadErr error
	statErr   error
	uploads   int
	deletes   []string
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{objects: map[string]remoteCopy{}}
}

func (r *memoryRemote) Stat(_ context.Context, name string) (*domain.RemoteObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statErr != nil {
		return nil, r.statErr
	}
	obj, ok := r.objects[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrObjectNotFound)
	}
	checksum := obj.checksum
	if obj.multipart {
		checksum += "-2"
	}
	return &domain.RemoteObject{Name: name, Size: int64(len(obj.data)), Checksum: checksum, Multipart: obj.multipart}, nil
}

func (r *memoryRemote) Upload(_ context.Context, localPath, name string, _ map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads++
	if r.uploadErr != nil {
		return r.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	if r.corrupt {
		data = append(data, 'x')
	}
	sum := md5.Sum(data)
	r.objects[name] = remoteCopy{data: data, checksum: hex.EncodeToString(sum[:]), multipart: r.multipart}
	return nil
}

func (r *memoryRemote) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, name)
	delete(r.objects, name)
	return nil
}

func (r *memoryRemote) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[name]
	return ok
}
