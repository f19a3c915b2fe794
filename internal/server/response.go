package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nunbody/internal/gallery"
	"nunbody/internal/media"
	"nunbody/internal/remote"
	"nunbody/internal/storage"
)

const loginPath = "/login"

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status, code int, message string, data any) {
	c.JSON(status, response{Code: code, Message: message, Data: data})
}

func ok(c *gin.Context, data any) {
	respond(c, http.StatusOK, 0, "success", data)
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, 40000, message, nil)
}

// fail converts err into a response. The client only ever sees a readable
// message; details go to the log.
func (s *Server) fail(c *gin.Context, err error, fallback string) {
	s.failWith(c, err, fallback, nil)
}

// failWith is fail with extra data attached to auth failures, e.g. a photo
// that was saved locally before the session turned out to be expired.
func (s *Server) failWith(c *gin.Context, err error, fallback string, extra gin.H) {
	redirect := gin.H{"redirect": loginPath}
	for k, v := range extra {
		redirect[k] = v
	}

	var (
		apiErr *remote.APIError
		valErr *media.ValidationError
	)
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		respond(c, http.StatusUnauthorized, 40100, "session expired", redirect)
	case errors.Is(err, remote.ErrNotLoggedIn):
		respond(c, http.StatusUnauthorized, 40101, "not logged in", redirect)
	case errors.As(err, &valErr):
		badRequest(c, valErr.Message)
	case errors.Is(err, gallery.ErrBadKey):
		badRequest(c, "unknown photo")
	case errors.Is(err, storage.ErrNotFound):
		respond(c, http.StatusNotFound, 40400, "photo not found", nil)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		respond(c, status, status*100, apiErr.Message, nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("remote call timed out", zap.String("path", c.FullPath()), zap.Error(err))
		respond(c, http.StatusGatewayTimeout, 50400, "the service took too long to respond", nil)
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respond(c, http.StatusInternalServerError, 50000, fallback, nil)
	}
}
