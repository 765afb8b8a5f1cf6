// Package factory builds the storage adapter selected by configuration.
package factory

import (
	"fmt"

	"github.com/terra-femme/MedJournee/internal/config"
	"github.com/terra-femme/MedJournee/internal/store"
	"github.com/terra-femme/MedJournee/internal/store/postgres"
	"github.com/terra-femme/MedJournee/internal/store/sqlite"
)

// NewStore returns the store adapter for cfg.DBDriver.
func NewStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(db); err != nil {
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return postgres.NewWithDB(db), nil
	case "sqlite":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
