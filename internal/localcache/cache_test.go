package localcache

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"nunbody/internal/events"
	"nunbody/internal/handles"
	"nunbody/internal/models"
	"nunbody/internal/storage"
)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newCache(t *testing.T) (*Cache, *recordingPublisher) {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "photos.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	pub := &recordingPublisher{}
	return New(store, pub, zap.NewNop()), pub
}

func TestInsertDefaults(t *testing.T) {
	c, pub := newCache(t)
	fixed := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	rec, err := c.Insert(context.Background(), NewPhoto{Blob: []byte("x"), FileName: "a.jpg"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID == 0 {
		t.Error("no id assigned")
	}
	if rec.BodyPart != models.BodyPartFull {
		t.Errorf("body part = %q", rec.BodyPart)
	}
	if rec.SessionID != "1746327721000" {
		t.Errorf("session id = %q", rec.SessionID)
	}
	if !rec.TakenAt.Equal(fixed) {
		t.Errorf("taken at = %v", rec.TakenAt)
	}
	if rec.MimeType != "image/jpeg" {
		t.Errorf("mime = %q", rec.MimeType)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.PhotoSaved || pub.events[0].PhotoID != rec.ID {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestInsertRejectsUnknownBodyPart(t *testing.T) {
	c, _ := newCache(t)
	if _, err := c.Insert(context.Background(), NewPhoto{Blob: []byte("x"), BodyPart: "elbow"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInsertThenListAllAddsExactlyOne(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	reg := handles.NewRegistry()

	if _, err := c.Insert(ctx, NewPhoto{Blob: []byte("old"), TakenAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	before, err := c.ListAll(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	in := NewPhoto{
		Blob:      []byte("png-bytes"),
		FileName:  "front.png",
		BodyPart:  models.BodyPartLower,
		SessionID: "morning",
		TakenAt:   time.Now().Truncate(time.Millisecond),
		MimeType:  "image/png",
	}
	rec, err := c.Insert(ctx, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	scope := reg.NewScope()
	defer scope.Release()
	after, err := c.ListAll(ctx, scope)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("list grew by %d, want 1", len(after)-len(before))
	}
	got := after[0]
	if got.ID != rec.ID || got.FileName != in.FileName || got.BodyPart != in.BodyPart ||
		got.SessionID != in.SessionID || got.MimeType != in.MimeType || !got.TakenAt.Equal(in.TakenAt.UTC()) {
		t.Errorf("metadata mismatch: %+v", got)
	}
	for _, p := range after {
		if !strings.HasPrefix(p.DisplayURL, handles.PathPrefix) {
			t.Errorf("record %d has no display handle", p.ID)
		}
	}
	if reg.Len() != len(after) {
		t.Errorf("live handles = %d, want %d", reg.Len(), len(after))
	}
}

func TestDeleteRemovesAndDecrementsCount(t *testing.T) {
	c, pub := newCache(t)
	ctx := context.Background()

	a, _ := c.Insert(ctx, NewPhoto{Blob: []byte("a"), SessionID: "s"})
	b, _ := c.Insert(ctx, NewPhoto{Blob: []byte("b"), SessionID: "s"})

	n0, _ := c.Count(ctx)
	if err := c.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n1, _ := c.Count(ctx)
	if n0-n1 != 1 {
		t.Errorf("count went from %d to %d", n0, n1)
	}

	all, _ := c.ListAll(ctx, nil)
	bySession, _ := c.ListBySession(ctx, "s", nil)
	for _, list := range [][]models.LocalPhoto{all, bySession} {
		if len(list) != 1 || list[0].ID != b.ID {
			t.Errorf("deleted record still listed: %+v", list)
		}
	}

	if err := c.Delete(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != events.PhotoDeleted || last.PhotoID != a.ID {
		t.Errorf("last event = %+v", last)
	}
}

func TestListBySessionFilters(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	sessions := []string{"a", "b", "a", "c", "a", "b"}
	for _, s := range sessions {
		if _, err := c.Insert(ctx, NewPhoto{Blob: []byte(s), SessionID: s}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	for _, want := range []string{"a", "b", "c", "missing"} {
		got, err := c.ListBySession(ctx, want, nil)
		if err != nil {
			t.Fatalf("by session: %v", err)
		}
		expected := 0
		for _, s := range sessions {
			if s == want {
				expected++
			}
		}
		if len(got) != expected {
			t.Errorf("session %q: %d records, want %d", want, len(got), expected)
		}
		for _, p := range got {
			if p.SessionID != want {
				t.Errorf("session %q returned record of %q", want, p.SessionID)
			}
		}
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	c, _ := newCache(t)
	_, ok, err := c.Get(context.Background(), 42, nil)
	if err != nil || ok {
		t.Errorf("get missing = %v, %v", ok, err)
	}
}
