package database

import (
	"context"
	"fmt"

	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/command"
)

type MySQLDatabase struct {
	config *config.DatabaseConfig
	runner command.Runner
}

func NewMySQL(cfg *config.DatabaseConfig, runner command.Runner) *MySQLDatabase {
	return &MySQLDatabase{config: cfg, runner: runner}
}

func (m *MySQLDatabase) Dump(ctx context.Context, outputPath string) error {
	// --defaults-extra-file must come first; it carries the password.
	args := []string{
		fmt.Sprintf("--defaults-extra-file=%s", m.config.CredentialsFile),
		fmt.Sprintf("--host=%s", m.config.Host),
		fmt.Sprintf("--port=%d", m.config.Port),
		"--single-transaction",
		"--quick",
		"--lock-tables=false",
		"--routines",
		"--triggers",
		"--events",
		fmt.Sprintf("--result-file=%s", outputPath),
	}
	if m.config.Username != "" {
		args = append(args, fmt.Sprintf("--user=%s", m.config.Username))
	}
	args = append(args, m.config.Database)

	result, err := m.runner.Run(ctx, m.Binary(), args, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDumpFailed, err)
	}
	return checkDumpResult(m.Binary(), result)
}

func (m *MySQLDatabase) GetName() string {
	return m.config.Name
}

func (m *MySQLDatabase) GetType() string {
	return "mysql"
}

func (m *MySQLDatabase) Binary() string {
	if m.config.Binary != "" {
		return m.config.Binary
	}
	return "mysqldump"
}
