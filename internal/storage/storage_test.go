package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"nunbody/internal/models"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "photos.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	runStoreContract(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("NUNBODY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NUNBODY_TEST_POSTGRES_DSN not set, skipping integration test")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer store.Close()
	if _, err := store.pool.Exec(ctx, `TRUNCATE photos`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	runStoreContract(t, store)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), models.StorageConfig{Driver: "indexeddb"}, zap.NewNop())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func TestNewSQLiteStore_Unopenable(t *testing.T) {
	// A directory where the database file should be cannot be opened as a database.
	dir := t.TempDir()
	_, err := NewSQLiteStore(context.Background(), dir, zap.NewNop())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	insert := func(session string, offset time.Duration) models.LocalPhoto {
		t.Helper()
		p := models.LocalPhoto{
			Blob:      []byte("jpeg-bytes-" + session),
			FileName:  "photo.jpg",
			BodyPart:  models.BodyPartUpper,
			SessionID: session,
			TakenAt:   base.Add(offset),
			MimeType:  "image/jpeg",
		}
		if err := store.Insert(ctx, &p); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if p.ID == 0 {
			t.Fatal("insert did not assign an id")
		}
		return p
	}

	a := insert("s1", 0)
	b := insert("s2", time.Hour)
	c := insert("s1", 2*time.Hour)

	if a.ID == b.ID || b.ID == c.ID || a.ID == c.ID {
		t.Fatalf("ids not unique: %d %d %d", a.ID, b.ID, c.ID)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d records, want 3", len(all))
	}
	if all[0].ID != c.ID || all[2].ID != a.ID {
		t.Errorf("all not ordered by taken_at desc: %d %d %d", all[0].ID, all[1].ID, all[2].ID)
	}
	if !all[0].TakenAt.Equal(c.TakenAt) || string(all[0].Blob) != "jpeg-bytes-s1" {
		t.Errorf("round trip mismatch: %+v", all[0])
	}

	got, err := store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != "s2" || got.BodyPart != models.BodyPartUpper {
		t.Errorf("get = %+v", got)
	}

	if _, err := store.Get(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing: err = %v, want ErrNotFound", err)
	}

	s1, err := store.BySession(ctx, "s1")
	if err != nil {
		t.Fatalf("by session: %v", err)
	}
	if len(s1) != 2 {
		t.Fatalf("by session = %d, want 2", len(s1))
	}
	for _, p := range s1 {
		if p.SessionID != "s1" {
			t.Errorf("by session leaked %q", p.SessionID)
		}
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	d := insert("s3", 3*time.Hour)
	if d.ID <= c.ID {
		t.Errorf("identity reused or went backwards: %d after %d", d.ID, c.ID)
	}
}
