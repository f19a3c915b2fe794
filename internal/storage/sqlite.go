package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nunbody/internal/models"
)

type photoRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Blob      []byte
	FileName  string
	BodyPart  string
	SessionID string
	TakenAt   time.Time
	MimeType  string
}

func (photoRow) TableName() string { return "photos" }

func (r photoRow) toModel() models.LocalPhoto {
	return models.LocalPhoto{
		ID:        r.ID,
		Blob:      r.Blob,
		FileName:  r.FileName,
		BodyPart:  models.BodyPart(r.BodyPart),
		SessionID: r.SessionID,
		TakenAt:   r.TakenAt.UTC(),
		MimeType:  r.MimeType,
	}
}

// SQLiteStore is the per-device photo store: a single SQLite file.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	const op = "storage.NewSQLiteStore"

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wrap(op, err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, wrap(op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := runMigrations(ctx, sqlDB, goose.DialectSQLite3, "migrations/sqlite", log); err != nil {
		sqlDB.Close()
		return nil, wrap(op, err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, p *models.LocalPhoto) error {
	const op = "storage.SQLiteStore.Insert"

	row := photoRow{
		Blob:      p.Blob,
		FileName:  p.FileName,
		BodyPart:  string(p.BodyPart),
		SessionID: p.SessionID,
		TakenAt:   p.TakenAt.UTC(),
		MimeType:  p.MimeType,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrap(op, err)
	}
	p.ID = row.ID
	return nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]models.LocalPhoto, error) {
	const op = "storage.SQLiteStore.All"

	var rows []photoRow
	if err := s.db.WithContext(ctx).Order("taken_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, wrap(op, err)
	}
	return toModels(rows), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (models.LocalPhoto, error) {
	const op = "storage.SQLiteStore.Get"

	var row photoRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LocalPhoto{}, wrap(op, ErrNotFound)
	}
	if err != nil {
		return models.LocalPhoto{}, wrap(op, err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) BySession(ctx context.Context, sessionID string) ([]models.LocalPhoto, error) {
	const op = "storage.SQLiteStore.BySession"

	var rows []photoRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("taken_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return toModels(rows), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	const op = "storage.SQLiteStore.Delete"

	res := s.db.WithContext(ctx).Delete(&photoRow{}, id)
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	const op = "storage.SQLiteStore.Count"

	var n int64
	if err := s.db.WithContext(ctx).Model(&photoRow{}).Count(&n).Error; err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

func toModels(rows []photoRow) []models.LocalPhoto {
	out := make([]models.LocalPhoto, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}
