// Package gallery merges the device's local photos and the account's remote
// photos into one chronological view.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"nunbody/internal/handles"
	"nunbody/internal/models"
	"nunbody/internal/remote"
	"nunbody/internal/storage"
)

var ErrBadKey = errors.New("gallery: malformed item key")

// RemoteSource is the part of the remote client the gallery needs.
type RemoteSource interface {
	ListPhotos(ctx context.Context) ([]models.RemotePhoto, error)
	DeletePhoto(ctx context.Context, id string) error
}

// LocalSource is the part of the local cache the gallery needs.
type LocalSource interface {
	ListAll(ctx context.Context, scope *handles.Scope) ([]models.LocalPhoto, error)
	Delete(ctx context.Context, id int64) error
}

// View is one loaded gallery. Warnings describe a source that could not be
// read; the items from the other source are still present.
type View struct {
	Items    []models.GalleryItem `json:"items"`
	Warnings []string             `json:"warnings,omitempty"`

	mu    sync.Mutex
	scope *handles.Scope
}

// Merge tags both lists, drops duplicate keys and orders newest first.
func Merge(remotes []models.RemotePhoto, locals []models.LocalPhoto) []models.GalleryItem {
	items := make([]models.GalleryItem, 0, len(remotes)+len(locals))
	seen := make(map[string]bool, cap(items))
	add := func(it models.GalleryItem) {
		if seen[it.Key] {
			return
		}
		seen[it.Key] = true
		items = append(items, it)
	}
	for _, p := range remotes {
		add(models.FromRemote(p))
	}
	for _, p := range locals {
		add(models.FromLocal(p))
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].TakenAt.Equal(items[j].TakenAt) {
			return items[i].TakenAt.After(items[j].TakenAt)
		}
		return items[i].Key < items[j].Key
	})
	return items
}

type Service struct {
	remote RemoteSource
	local  LocalSource
	log    *zap.Logger
}

func NewService(r RemoteSource, l LocalSource, log *zap.Logger) *Service {
	return &Service{remote: r, local: l, log: log}
}

// Load reads both sources concurrently. Local display handles are acquired
// in scope. Only an expired session fails the whole load.
func (s *Service) Load(ctx context.Context, scope *handles.Scope) (*View, error) {
	const op = "gallery.Load"

	var (
		wg                  sync.WaitGroup
		remotes             []models.RemotePhoto
		locals              []models.LocalPhoto
		remoteErr, localErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		remotes, remoteErr = s.remote.ListPhotos(ctx)
	}()
	go func() {
		defer wg.Done()
		locals, localErr = s.local.ListAll(ctx, scope)
	}()
	wg.Wait()

	view := &View{scope: scope}
	switch {
	case remoteErr == nil:
	case errors.Is(remoteErr, remote.ErrUnauthorized):
		return nil, fmt.Errorf("%s: %w", op, remoteErr)
	case errors.Is(remoteErr, remote.ErrNotLoggedIn):
		remotes = nil
	default:
		s.log.Warn("remote photos unavailable", zap.Error(remoteErr))
		view.Warnings = append(view.Warnings, remote.Message(remoteErr, "Server photos could not be loaded"))
		remotes = nil
	}
	if localErr != nil {
		s.log.Warn("local photos unavailable", zap.Error(localErr))
		view.Warnings = append(view.Warnings, "Photos saved on this device could not be loaded")
		locals = nil
	}

	view.Items = Merge(remotes, locals)
	return view, nil
}

// Delete removes the item behind key from its owning source and, on
// success, from view together with its display handle. A local record that
// is already gone counts as deleted.
func (s *Service) Delete(ctx context.Context, view *View, key string) error {
	const op = "gallery.Delete"

	source, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return fmt.Errorf("%s: %w", op, ErrBadKey)
	}

	switch models.Source(source) {
	case models.SourceLocal:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", op, ErrBadKey)
		}
		if err := s.local.Delete(ctx, n); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
	case models.SourceServer:
		if err := s.remote.DeletePhoto(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	default:
		return fmt.Errorf("%s: %w", op, ErrBadKey)
	}

	if view != nil {
		view.remove(key)
	}
	return nil
}

func (v *View) remove(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, it := range v.Items {
		if it.Key == key {
			if it.Source == models.SourceLocal {
				v.scope.ReleaseURL(it.DisplayURL)
			}
			v.Items = append(v.Items[:i:i], v.Items[i+1:]...)
			return
		}
	}
}

// Snapshot copies the current items.
func (v *View) Snapshot() []models.GalleryItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.GalleryItem(nil), v.Items...)
}
