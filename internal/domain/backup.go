package domain

import (
	"fmt"
	"time"
)

type State int

const (
	StateStart State = iota
	StateLockAcquired
	StateDumped
	StateArchived
	StateVerified
	StatePruned
	StateDone
	StateCleanup
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateLockAcquired:
		return "LOCK_ACQUIRED"
	case StateDumped:
		return "DUMPED"
	case StateArchived:
		return "ARCHIVED"
	case StateVerified:
		return "VERIFIED"
	case StatePruned:
		return "PRUNED"
	case StateDone:
		return "DONE"
	case StateCleanup:
		return "CLEANUP"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Report is the outcome of one run of the backup job.
type Report struct {
	DatabaseName string
	State        State
	DumpFile     string
	ArchiveFile  string
	DumpSize     int64
	ArchiveSize  int64
	// Ratio is ArchiveSize*100/DumpSize.
	Ratio    int64
	Pruned   PruneResult
	Duration time.Duration
	Err      error
}

// CompressionRatio is archive*100/dump in integer arithmetic; 0 for an empty dump.
func CompressionRatio(dumpSize, archiveSize int64) int64 {
	if dumpSize <= 0 {
		return 0
	}
	return archiveSize * 100 / dumpSize
}
