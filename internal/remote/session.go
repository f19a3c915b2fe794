package remote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v2"
)

type Profile struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

type credentials struct {
	Token string  `yaml:"token"`
	User  Profile `yaml:"user"`
}

// Session holds the bearer token and the signed-in user. It is set on login,
// cleared on logout and invalidated when the remote service answers 401.
// Credentials persist in a YAML file so the agent survives restarts.
type Session struct {
	path string
	now  func() time.Time

	mu           sync.Mutex
	creds        credentials
	onInvalidate func()
}

// LoadSession restores credentials from path. A missing file yields a signed-out session.
func LoadSession(path string) (*Session, error) {
	const op = "remote.LoadSession"

	s := &Session{path: path, now: time.Now}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := yaml.Unmarshal(data, &s.creds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// OnInvalidate registers fn to run once each time a live session is invalidated.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.onInvalidate = fn
	s.mu.Unlock()
}

func (s *Session) Set(token string, user Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = credentials{Token: token, User: user}
	return s.persist()
}

func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = credentials{}
	return s.persist()
}

// Invalidate clears the credentials if token is still the current one and
// reports whether it did. Concurrent 401s carrying the same token therefore
// clear the session and fire the hook exactly once. The error reports a
// credentials file that could not be removed; the session is cleared in memory
// regardless.
func (s *Session) Invalidate(token string) (bool, error) {
	s.mu.Lock()
	if token == "" || s.creds.Token != token {
		s.mu.Unlock()
		return false, nil
	}
	s.creds = credentials{}
	err := s.persist()
	hook := s.onInvalidate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true, err
}

func (s *Session) User() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.User, s.creds.Token != ""
}

func (s *Session) LoggedIn() bool {
	_, ok := s.User()
	return ok
}

// SetUser replaces the cached profile, keeping the token.
func (s *Session) SetUser(user Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.Token == "" {
		return ErrNotLoggedIn
	}
	s.creds.User = user
	return s.persist()
}

// bearer returns the token to send. An expired JWT invalidates the session
// without a round trip.
func (s *Session) bearer() (string, error) {
	s.mu.Lock()
	token := s.creds.Token
	s.mu.Unlock()

	if token == "" {
		return "", ErrNotLoggedIn
	}
	if exp, ok := expiry(token); ok && !s.now().Before(exp) {
		if _, err := s.Invalidate(token); err != nil {
			return "", errors.Join(ErrUnauthorized, err)
		}
		return "", ErrUnauthorized
	}
	return token, nil
}

// expiry reads the exp claim without verifying the signature. Opaque
// (non-JWT) tokens report false.
func expiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Session) persist() error {
	const op = "remote.Session.persist"

	if s.path == "" {
		return nil
	}
	if s.creds.Token == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	data, err := yaml.Marshal(s.creds)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
