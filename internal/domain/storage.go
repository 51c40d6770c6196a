package domain

import (
	"context"
	"time"
)

// FileInfo describes a regular file in the backup directory.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// RemoteObject is what a remote target reports about a stored object.
// Checksum is a hex MD5 unless Multipart is set, in which case only Size is comparable.
type RemoteObject struct {
	Name      string
	Size      int64
	Checksum  string
	Multipart bool
}

// RemoteStorage is an off-site upload target.
type RemoteStorage interface {
	// Stat returns ErrObjectNotFound when the object does not exist.
	Stat(ctx context.Context, name string) (*RemoteObject, error)
	Upload(ctx context.Context, localPath, name string, metadata map[string]string) error
	Delete(ctx context.Context, name string) error
}

// Notifier delivers a short report about a finished run.
type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}
