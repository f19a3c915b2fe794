// Package handles hands out short-lived display URLs for photo bytes held by
// the agent. A handle keeps its bytes in memory until it is released, so
// every handle belongs to a Scope that the owning view releases when it is
// recomputed or torn down.
package handles

import (
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const PathPrefix = "/handles/"

type entry struct {
	data     []byte
	mimeType string
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// NewScope returns an empty scope whose handles live in r.
func (r *Registry) NewScope() *Scope {
	return &Scope{registry: r}
}

// URL is the agent-relative display URL for token.
func URL(token string) string {
	return PathPrefix + token
}

func (r *Registry) acquire(data []byte, mimeType string) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.entries[token] = entry{data: data, mimeType: mimeType}
	r.mu.Unlock()
	return token
}

func (r *Registry) release(tokens []string) {
	r.mu.Lock()
	for _, t := range tokens {
		delete(r.entries, t)
	}
	r.mu.Unlock()
}

func (r *Registry) lookup(token string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	return e, ok
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Serve is the gin handler for GET /handles/:token.
func (r *Registry) Serve(c *gin.Context) {
	e, ok := r.lookup(c.Param("token"))
	if !ok {
		c.Status(http.StatusGone)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, e.mimeType, e.data)
}

// Scope owns a set of handles. Acquire after Release starts a fresh set.
type Scope struct {
	registry *Registry

	mu     sync.Mutex
	tokens []string
}

// Acquire registers data and returns its display URL.
func (s *Scope) Acquire(data []byte, mimeType string) string {
	token := s.registry.acquire(data, mimeType)
	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	return URL(token)
}

// Release revokes every handle acquired through s. Safe to call repeatedly.
func (s *Scope) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	tokens := s.tokens
	s.tokens = nil
	s.mu.Unlock()
	s.registry.release(tokens)
}

// ReleaseURL revokes the single handle behind url if s owns it.
func (s *Scope) ReleaseURL(url string) bool {
	if s == nil {
		return false
	}
	token, ok := strings.CutPrefix(url, PathPrefix)
	if !ok {
		return false
	}
	s.mu.Lock()
	i := slices.Index(s.tokens, token)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.tokens = slices.Delete(s.tokens, i, i+1)
	s.mu.Unlock()
	s.registry.release([]string{token})
	return true
}

func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
