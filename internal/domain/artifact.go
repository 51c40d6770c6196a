package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DumpExt    = ".backup"
	ArchiveExt = ".7z"

	// artifactLayout is the timestamp portion of every artifact name.
	artifactLayout = "2006-01-02_15-04"
)

// Artifact identifies one dump or archive file by database, capture time and extension.
type Artifact struct {
	Database   string
	CapturedAt time.Time
	Ext        string
}

func NewArtifact(database string, capturedAt time.Time, ext string) Artifact {
	return Artifact{
		Database:   database,
		CapturedAt: capturedAt.Truncate(time.Minute),
		Ext:        ext,
	}
}

// Filename renders <database>_<YYYY>-<MM>-<DD>_<HH>-<MM><ext>.
func (a Artifact) Filename() string {
	return a.Database + "_" + a.CapturedAt.Format(artifactLayout) + a.Ext
}

// WithExt returns the sibling artifact with the same database and timestamp.
func (a Artifact) WithExt(ext string) Artifact {
	a.Ext = ext
	return a
}

// Day is the calendar day-of-month embedded in the name.
func (a Artifact) Day() int {
	return a.CapturedAt.Day()
}

// ParseArtifact parses filename strictly against the naming convention for database and ext.
// Anything else, including names belonging to a database that shares the same prefix, is rejected.
func ParseArtifact(filename, database, ext string) (Artifact, error) {
	prefix := database + "_"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, ext) {
		return Artifact{}, fmt.Errorf("%s: not a %s artifact of %s", filename, ext, database)
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), ext)
	if len(stamp) != len(artifactLayout) {
		return Artifact{}, fmt.Errorf("%s: invalid timestamp %q", filename, stamp)
	}

	capturedAt, err := time.ParseInLocation(artifactLayout, stamp, time.Local)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: invalid timestamp: %w", filename, err)
	}

	return Artifact{Database: database, CapturedAt: capturedAt, Ext: ext}, nil
}
