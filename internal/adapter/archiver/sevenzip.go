package archiver

import (
	"context"
	"fmt"
	"strings"

	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/command"
)

// SevenZip drives the 7z command line tool: password encryption with encrypted headers, solid mode.
type SevenZip struct {
	binary   string
	level    int
	password string
	runner   command.Runner
}

func NewSevenZip(cfg *config.ArchiveConfig, runner command.Runner) *SevenZip {
	binary := cfg.Binary
	if binary == "" {
		binary = "7z"
	}
	return &SevenZip{
		binary:   binary,
		level:    cfg.Level,
		password: cfg.Password,
		runner:   runner,
	}
}

func (s *SevenZip) Archive(ctx context.Context, sourcePath, archivePath string) error {
	args := []string{
		"a",
		"-t7z",
		fmt.Sprintf("-mx=%d", s.level),
		"-mhe=on",
		"-ms=on",
		"-p" + s.password,
		"-y",
		archivePath,
		sourcePath,
	}

	result, err := s.runner.Run(ctx, s.binary, args, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArchiveFailed, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited with code %d, output: %s",
			domain.ErrArchiveFailed, s.binary, result.ExitCode, diagnostics(result))
	}
	return nil
}

func (s *SevenZip) Test(ctx context.Context, archivePath string) error {
	args := []string{"t", "-p" + s.password, archivePath}

	result, err := s.runner.Run(ctx, s.binary, args, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArchiveCorrupted, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s test exited with code %d, output: %s",
			domain.ErrArchiveCorrupted, s.binary, result.ExitCode, diagnostics(result))
	}
	return nil
}

func (s *SevenZip) Binary() string {
	return s.binary
}

// 7z writes most of its errors to stdout.
func diagnostics(result *command.Result) string {
	out := strings.TrimSpace(result.Stderr)
	if out == "" {
		out = strings.TrimSpace(result.Stdout)
	}
	return out
}
