package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nunbody/internal/localcache"
	"nunbody/internal/media"
	"nunbody/internal/models"
	"nunbody/internal/remote"
)

// GET /api/gallery. Reloading releases the display handles of the previous load.
func (s *Server) handleGallery(c *gin.Context) {
	scope, commit := s.swapScope("gallery")
	view, err := s.gallery.Load(c.Request.Context(), scope)
	if err != nil {
		commit(false)
		s.fail(c, err, "Could not load photos")
		return
	}
	commit(true)
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	ok(c, gin.H{"items": view.Snapshot(), "warnings": view.Warnings})
}

// DELETE /api/gallery/:source/:id. The display handle of a deleted local
// item is released with it.
func (s *Server) handleDeleteItem(c *gin.Context) {
	key := models.ItemKey(models.Source(c.Param("source")), c.Param("id"))
	if err := s.gallery.Delete(c.Request.Context(), s.currentView(), key); err != nil {
		s.fail(c, err, "Delete failed")
		return
	}
	ok(c, gin.H{"deleted": key})
}

// POST /api/photos: validate, keep on the device, then upload unless the
// agent is local-only. A failed upload leaves the local copy and a warning.
func (s *Server) handleUpload(c *gin.Context) {
	maxBytes := s.cfg.Upload.MaxBytes

	fh, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "no photo selected")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err, "Could not read photo")
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	f.Close()
	if err != nil {
		s.fail(c, err, "Could not read photo")
		return
	}
	mimeType, err := media.Validate(data, maxBytes)
	if err != nil {
		s.fail(c, err, "Invalid photo")
		return
	}
	bodyPart, err := models.ParseBodyPart(c.PostForm("body_part"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var takenAt time.Time
	if v := c.PostForm("taken_at"); v != "" {
		if takenAt, err = time.Parse(time.RFC3339, v); err != nil {
			badRequest(c, "taken_at must be an RFC 3339 timestamp")
			return
		}
	}

	local, err := s.photos.Insert(c.Request.Context(), localcache.NewPhoto{
		Blob:      data,
		FileName:  fh.Filename,
		BodyPart:  bodyPart,
		SessionID: c.PostForm("session_id"),
		TakenAt:   takenAt,
		MimeType:  mimeType,
	})
	if err != nil {
		s.fail(c, err, "Could not save the photo on this device")
		return
	}

	result := gin.H{"local": local}
	if s.cfg.Upload.LocalOnly {
		ok(c, result)
		return
	}

	uploaded, err := s.remote.UploadPhoto(c.Request.Context(), remote.Upload{
		FileName: fh.Filename,
		MimeType: mimeType,
		BodyPart: bodyPart,
		Data:     data,
	})
	switch {
	case err == nil:
		result["remote"] = uploaded
	case errors.Is(err, remote.ErrUnauthorized):
		s.failWith(c, err, "", gin.H{"local": local})
		return
	case errors.Is(err, remote.ErrNotLoggedIn):
		result["warning"] = "Saved on this device only. Log in to upload."
	default:
		s.log.Warn("remote upload failed", zap.Int64("local_id", local.ID), zap.Error(err))
		result["warning"] = "Saved on this device. Upload failed: " + remote.Message(err, "Upload failed")
	}
	ok(c, result)
}

// GET /api/local/photos/:id
func (s *Server) handleLocalPhoto(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid photo id")
		return
	}
	scope, commit := s.swapScope("detail")
	photo, found, err := s.photos.Get(c.Request.Context(), id, scope)
	if err != nil {
		commit(false)
		s.fail(c, err, "Could not load photo")
		return
	}
	commit(found)
	if !found {
		respond(c, http.StatusNotFound, 40400, "photo not found", nil)
		return
	}
	ok(c, gin.H{"photo": photo})
}

// GET /api/local/sessions/:session
func (s *Server) handleLocalSession(c *gin.Context) {
	scope, commit := s.swapScope("session")
	photos, err := s.photos.ListBySession(c.Request.Context(), c.Param("session"), scope)
	if err != nil {
		commit(false)
		s.fail(c, err, "Could not load photos")
		return
	}
	commit(true)
	ok(c, gin.H{"photos": photos})
}

// GET /api/local/count
func (s *Server) handleLocalCount(c *gin.Context) {
	n, err := s.photos.Count(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Could not count photos")
		return
	}
	ok(c, gin.H{"count": n})
}

// GET /thumbs/:id
func (s *Server) handleThumbnail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || s.thumbs == nil {
		c.Status(http.StatusNotFound)
		return
	}
	path := s.thumbs.Path(id)
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "private, max-age=60")
	c.File(path)
}
