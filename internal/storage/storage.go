// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nunbody/internal/models"
)

// ErrNotFound is reported when no photo carries the requested identity.
var ErrNotFound = errors.New("photo not found")

// StorageError is returned when the device store cannot be opened or a
// read/write against it fails.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store is a persistent photo object store keyed by an auto-assigned identity.
// Every call is its own transaction; implementations are safe for concurrent use.
type Store interface {
	// Insert writes p and sets p.ID to the identity the store assigned.
	Insert(ctx context.Context, p *models.LocalPhoto) error
	All(ctx context.Context) ([]models.LocalPhoto, error)
	Get(ctx context.Context, id int64) (models.LocalPhoto, error)
	BySession(ctx context.Context, sessionID string) ([]models.LocalPhoto, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Open returns the backend selected by cfg.Driver with its schema migrated.
func Open(ctx context.Context, cfg models.StorageConfig, log *zap.Logger) (Store, error) {
	const op = "storage.Open"

	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath, log)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN, log)
	}
	return nil, wrap(op, fmt.Errorf("unknown storage driver %q", cfg.Driver))
}
