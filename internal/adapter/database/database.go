package database

import (
	"fmt"

	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
	"github.com/semmidev/archivist/internal/infrastructure/command"
)

// New returns the adapter for cfg.Type.
func New(cfg *config.DatabaseConfig, runner command.Runner) (domain.Database, error) {
	switch cfg.Type {
	case "postgresql":
		return NewPostgreSQL(cfg, runner), nil
	case "mysql":
		return NewMySQL(cfg, runner), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
