package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nunbody/internal/cache"
	"nunbody/internal/gallery"
	"nunbody/internal/handles"
	"nunbody/internal/localcache"
	"nunbody/internal/logger"
	"nunbody/internal/models"
	"nunbody/internal/remote"
)

// Deps are the components the agent API is wired from.
type Deps struct {
	Config  *models.Config
	Photos  *localcache.Cache
	Remote  *remote.Client
	Handles *handles.Registry
	Cache   cache.AnalysisCache
	Thumbs  *Thumbnailer
	Log     *zap.Logger
}

type Server struct {
	cfg     *models.Config
	router  *gin.Engine
	http    *http.Server
	photos  *localcache.Cache
	remote  *remote.Client
	gallery *gallery.Service
	handles *handles.Registry
	cache   cache.AnalysisCache
	thumbs  *Thumbnailer
	log     *zap.Logger

	mu     sync.Mutex
	scopes map[string]*handles.Scope
	view   *gallery.View
}

func NewServer(d Deps) *Server {
	switch strings.ToLower(d.Config.Server.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.Ginzap(d.Log), logger.Recovery(d.Log))
	if origins := d.Config.Server.AllowedOrigins; len(origins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(origins) == 1 && origins[0] == "*" {
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
		} else {
			corsCfg.AllowOrigins = origins
		}
		r.Use(cors.New(corsCfg))
	}

	s := &Server{
		cfg:     d.Config,
		router:  r,
		photos:  d.Photos,
		remote:  d.Remote,
		gallery: gallery.NewService(d.Remote, d.Photos, d.Log),
		handles: d.Handles,
		cache:   d.Cache,
		thumbs:  d.Thumbs,
		log:     d.Log,
		scopes:  make(map[string]*handles.Scope),
	}
	s.http = &http.Server{
		Addr:              d.Config.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      d.Config.Remote.AnalysisTimeout + 15*time.Second,
	}

	api := r.Group("/api")
	{
		api.GET("/session", s.handleSession)
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/logout", s.handleLogout)
		api.GET("/profile", s.handleGetProfile)
		api.PUT("/profile", s.handleUpdateProfile)
		api.PUT("/profile/password", s.handleChangePassword)
		api.DELETE("/account", s.handleDeleteAccount)

		api.GET("/gallery", s.handleGallery)
		api.DELETE("/gallery/:source/:id", s.handleDeleteItem)
		api.POST("/photos", s.handleUpload)
		api.GET("/local/photos/:id", s.handleLocalPhoto)
		api.GET("/local/sessions/:session", s.handleLocalSession)
		api.GET("/local/count", s.handleLocalCount)

		api.POST("/analysis/analyze", s.handleAnalyze)
		api.POST("/analysis/compare", s.handleCompare)
		api.GET("/analysis/history", s.handleHistory)
		api.GET("/analysis/history/:id", s.handleHistoryDetail)
	}
	r.GET(handles.PathPrefix+":token", d.Handles.Serve)
	r.GET("/thumbs/:id", s.handleThumbnail)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("agent api listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and revokes every display handle still held.
func (s *Server) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.mu.Lock()
	for name, scope := range s.scopes {
		scope.Release()
		delete(s.scopes, name)
	}
	s.view = nil
	s.mu.Unlock()
	return err
}

// swapScope hands out a fresh scope for the named view and returns a commit
// func. Committing releases the scope the view held before; dropping it
// releases the new one instead.
func (s *Server) swapScope(name string) (*handles.Scope, func(bool)) {
	next := s.handles.NewScope()
	return next, func(keep bool) {
		if !keep {
			next.Release()
			return
		}
		s.mu.Lock()
		prev := s.scopes[name]
		s.scopes[name] = next
		s.mu.Unlock()
		prev.Release()
	}
}

func (s *Server) currentView() *gallery.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}
