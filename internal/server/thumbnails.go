package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"nunbody/internal/events"
	"nunbody/internal/handles"
	"nunbody/internal/media"
	"nunbody/internal/models"
)

// PhotoGetter loads one local record with its blob.
type PhotoGetter interface {
	Get(ctx context.Context, id int64, scope *handles.Scope) (models.LocalPhoto, bool, error)
}

// Thumbnailer keeps a captioned preview on disk for every local photo.
type Thumbnailer struct {
	photos PhotoGetter
	dir    string
	size   int
	log    *zap.Logger
}

func NewThumbnailer(photos PhotoGetter, cfg models.ThumbnailConfig, log *zap.Logger) *Thumbnailer {
	return &Thumbnailer{photos: photos, dir: cfg.Path, size: cfg.Size, log: log}
}

// Path is where the preview of photo id lives.
func (t *Thumbnailer) Path(id int64) string {
	return filepath.Join(t.dir, strconv.FormatInt(id, 10)+".jpg")
}

// Process handles one photo event. It is safe to replay.
func (t *Thumbnailer) Process(ctx context.Context, e events.Event) error {
	const op = "server.Thumbnailer.Process"

	switch e.Type {
	case events.PhotoDeleted:
		if err := os.Remove(t.Path(e.PhotoID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case events.PhotoSaved:
	default:
		t.log.Debug("ignoring event", zap.String("type", string(e.Type)))
		return nil
	}

	photo, ok, err := t.photos.Get(ctx, e.PhotoID, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		// deleted before we got to it
		return nil
	}

	caption := string(photo.BodyPart) + "  " + photo.TakenAt.Local().Format("2006-01-02")
	thumb, err := media.Thumbnail(photo.Blob, t.size, caption)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp, err := os.CreateTemp(t.dir, ".thumb-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(thumb); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), t.Path(e.PhotoID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	t.log.Debug("thumbnail written", zap.Int64("photo_id", e.PhotoID))
	return nil
}

// Run feeds bus events to Process until ctx is cancelled.
func (t *Thumbnailer) Run(ctx context.Context, bus events.Bus) error {
	return bus.Consume(ctx, t.Process)
}
