package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"nunbody/internal/models"
)

const photoColumns = `id, blob, file_name, body_part, session_id, taken_at, mime_type`

type pgPhoto struct {
	ID        int64     `db:"id"`
	Blob      []byte    `db:"blob"`
	FileName  string    `db:"file_name"`
	BodyPart  string    `db:"body_part"`
	SessionID string    `db:"session_id"`
	TakenAt   time.Time `db:"taken_at"`
	MimeType  string    `db:"mime_type"`
}

// PostgresStore keeps photos in a shared Postgres database, for households
// that run the agent against a home server instead of a device file.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewPostgresStore(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	const op = "storage.NewPostgresStore"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap(op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(ctx, db, goose.DialectPostgres, "migrations/postgres", log); err != nil {
		db.Close()
		pool.Close()
		return nil, wrap(op, err)
	}

	return &PostgresStore{pool: pool, db: db}, nil
}

func (s *PostgresStore) Close() error {
	err := s.db.Close()
	s.pool.Close()
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, p *models.LocalPhoto) error {
	const op = "storage.PostgresStore.Insert"

	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (blob, file_name, body_part, session_id, taken_at, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Blob, p.FileName, string(p.BodyPart), p.SessionID, p.TakenAt.UTC(), p.MimeType).Scan(&p.ID)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]models.LocalPhoto, error) {
	const op = "storage.PostgresStore.All"

	rows, err := s.pool.Query(ctx,
		`SELECT `+photoColumns+` FROM photos ORDER BY taken_at DESC, id DESC`)
	if err != nil {
		return nil, wrap(op, err)
	}
	photos, err := collect(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return photos, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (models.LocalPhoto, error) {
	const op = "storage.PostgresStore.Get"

	rows, err := s.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	if err != nil {
		return models.LocalPhoto{}, wrap(op, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[pgPhoto])
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LocalPhoto{}, wrap(op, ErrNotFound)
	}
	if err != nil {
		return models.LocalPhoto{}, wrap(op, err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) BySession(ctx context.Context, sessionID string) ([]models.LocalPhoto, error) {
	const op = "storage.PostgresStore.BySession"

	rows, err := s.pool.Query(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE session_id = $1 ORDER BY taken_at DESC, id DESC`,
		sessionID)
	if err != nil {
		return nil, wrap(op, err)
	}
	photos, err := collect(rows)
	if err != nil {
		return nil, wrap(op, err)
	}
	return photos, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	const op = "storage.PostgresStore.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrap(op, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	const op = "storage.PostgresStore.Count"

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM photos`).Scan(&n); err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

func (p pgPhoto) toModel() models.LocalPhoto {
	return models.LocalPhoto{
		ID:        p.ID,
		Blob:      p.Blob,
		FileName:  p.FileName,
		BodyPart:  models.BodyPart(p.BodyPart),
		SessionID: p.SessionID,
		TakenAt:   p.TakenAt.UTC(),
		MimeType:  p.MimeType,
	}
}

func collect(rows pgx.Rows) ([]models.LocalPhoto, error) {
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[pgPhoto])
	if err != nil {
		return nil, err
	}
	out := make([]models.LocalPhoto, 0, len(found))
	for _, p := range found {
		out = append(out, p.toModel())
	}
	return out, nil
}
