package domain

import "context"

type Database interface {
	Dump(ctx context.Context, outputPath string) error
	GetName() string
	GetType() string
	// Binary is the external dump command, checked before the job starts.
	Binary() string
}
