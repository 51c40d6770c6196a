package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/command"
)

type PostgreSQLDatabase struct {
	config *config.DatabaseConfig
	runner command.Runner
}

func NewPostgreSQL(cfg *config.DatabaseConfig, runner command.Runner) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{config: cfg, runner: runner}
}

func (p *PostgreSQLDatabase) Dump(ctx context.Context, outputPath string) error {
	args := []string{
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--no-password",
		"--format=custom",
		fmt.Sprintf("--file=%s", outputPath),
		p.config.Database,
	}

	// Password comes from the pgpass file, never from argv.
	var env []string
	if p.config.CredentialsFile != "" {
		env = append(env, "PGPASSFILE="+p.config.CredentialsFile)
	}

	result, err := p.runner.Run(ctx, p.Binary(), args, env)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDumpFailed, err)
	}
	return checkDumpResult(p.Binary(), result)
}

func (p *PostgreSQLDatabase) GetName() string {
	return p.config.Name
}

func (p *PostgreSQLDatabase) GetType() string {
	return "postgresql"
}

func (p *PostgreSQLDatabase) Binary() string {
	if p.config.Binary != "" {
		return p.config.Binary
	}
	return "pg_dump"
}

// checkDumpResult treats a non-zero exit or any diagnostic output as a failed dump.
func checkDumpResult(binary string, result *command.Result) error {
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited with code %d, output: %s",
			domain.ErrDumpFailed, binary, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
		return fmt.Errorf("%w: %s reported errors: %s", domain.ErrDumpFailed, binary, stderr)
	}
	return nil
}
