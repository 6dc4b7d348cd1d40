package repositories

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"yard-kpi-service/internal/platform/db"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Migrate applies every pending schema migration for the given driver.
func Migrate(ctx context.Context, sqlDB *sql.DB, driver string) error {
	if sqlDB == nil {
		return errors.New("migrate: DB is nil")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(db.Dialect(driver)); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate: apply: %w", err)
	}

	return nil
}

