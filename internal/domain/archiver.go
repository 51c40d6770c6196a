package domain

import "context"

// Archiver packs a dump into an encrypted archive and can test an existing archive.
type Archiver interface {
	Archive(ctx context.Context, sourcePath, archivePath string) error
	Test(ctx context.Context, archivePath string) error
	Binary() string
}
