// internal/storage/init.go
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string, log *zap.Logger) error {
	const op = "storage.migrations"

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(results) == 0 {
		log.Debug("no migrations to apply", zap.String("dialect", string(dialect)))
		return nil
	}
	log.Info("database migrations applied", zap.String("dialect", string(dialect)), zap.Int("count", len(results)))
	return nil
}
