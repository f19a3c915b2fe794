// Package localcache is the on-device photo cache: originals kept on the
// user's machine whether or not they were ever uploaded.
package localcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"nunbody/internal/events"
	"nunbody/internal/handles"
	"nunbody/internal/models"
	"nunbody/internal/storage"
)

const defaultMimeType = "image/jpeg"

// NewPhoto is the input to Insert. Zero SessionID, TakenAt and MimeType are defaulted.
type NewPhoto struct {
	Blob      []byte
	FileName  string
	BodyPart  models.BodyPart
	SessionID string
	TakenAt   time.Time
	MimeType  string
}

type Cache struct {
	store  storage.Store
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func New(store storage.Store, pub events.Publisher, log *zap.Logger) *Cache {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Cache{store: store, events: pub, log: log, now: time.Now}
}

// Insert stores p under a fresh identity and returns the stored record.
func (c *Cache) Insert(ctx context.Context, p NewPhoto) (models.LocalPhoto, error) {
	const op = "localcache.Insert"

	if len(p.Blob) == 0 {
		return models.LocalPhoto{}, fmt.Errorf("%s: empty photo", op)
	}
	bodyPart, err := models.ParseBodyPart(string(p.BodyPart))
	if err != nil {
		return models.LocalPhoto{}, fmt.Errorf("%s: %w", op, err)
	}

	now := c.now()
	rec := models.LocalPhoto{
		Blob:      p.Blob,
		FileName:  p.FileName,
		BodyPart:  bodyPart,
		SessionID: p.SessionID,
		TakenAt:   p.TakenAt,
		MimeType:  p.MimeType,
	}
	if rec.SessionID == "" {
		rec.SessionID = strconv.FormatInt(now.UnixMilli(), 10)
	}
	if rec.TakenAt.IsZero() {
		rec.TakenAt = now
	}
	rec.TakenAt = rec.TakenAt.UTC()
	if rec.MimeType == "" {
		rec.MimeType = defaultMimeType
	}

	if err := c.store.Insert(ctx, &rec); err != nil {
		return models.LocalPhoto{}, err
	}
	c.publish(ctx, events.PhotoSaved, rec.ID)
	return rec, nil
}

// ListAll returns every record, newest first. Each record gets a display URL
// acquired in scope; a nil scope skips display handles.
func (c *Cache) ListAll(ctx context.Context, scope *handles.Scope) ([]models.LocalPhoto, error) {
	photos, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	return materialize(photos, scope), nil
}

// Get reports false, not an error, when id is unknown.
func (c *Cache) Get(ctx context.Context, id int64, scope *handles.Scope) (models.LocalPhoto, bool, error) {
	p, err := c.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.LocalPhoto{}, false, nil
	}
	if err != nil {
		return models.LocalPhoto{}, false, err
	}
	if scope != nil {
		p.DisplayURL = scope.Acquire(p.Blob, p.MimeType)
	}
	return p, true, nil
}

func (c *Cache) ListBySession(ctx context.Context, sessionID string, scope *handles.Scope) ([]models.LocalPhoto, error) {
	photos, err := c.store.BySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return materialize(photos, scope), nil
}

// Delete removes id permanently. An unknown id yields storage.ErrNotFound.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.publish(ctx, events.PhotoDeleted, id)
	return nil
}

func (c *Cache) Count(ctx context.Context) (int64, error) {
	return c.store.Count(ctx)
}

func (c *Cache) publish(ctx context.Context, t events.Type, id int64) {
	err := c.events.Publish(ctx, events.Event{Type: t, PhotoID: id, At: c.now().UTC()})
	if err != nil {
		c.log.Warn("photo event not published", zap.String("type", string(t)), zap.Int64("photo_id", id), zap.Error(err))
	}
}

func materialize(photos []models.LocalPhoto, scope *handles.Scope) []models.LocalPhoto {
	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].TakenAt.After(photos[j].TakenAt)
	})
	if scope == nil {
		return photos
	}
	for i := range photos {
		photos[i].DisplayURL = scope.Acquire(photos[i].Blob, photos[i].MimeType)
	}
	return photos
}
