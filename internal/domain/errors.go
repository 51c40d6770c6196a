package domain

import "errors"

// Preconditions. Nothing has been touched when one of these is returned.
var (
	ErrAlreadyRunning    = errors.New("backup already running")
	ErrMissingDependency = errors.New("missing dependency")
	ErrBackupDirectory   = errors.New("cannot create backup directory")
)

// Stage failures.
var (
	ErrDumpFailed       = errors.New("dump failed")
	ErrArchiveFailed    = errors.New("archive failed")
	ErrArchiveCorrupted = errors.New("archive corrupted")
)

var ErrObjectNotFound = errors.New("object not found")
