package remote

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestSessionPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s, err := LoadSession(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LoggedIn() {
		t.Fatal("fresh session should be signed out")
	}
	if err := s.Set("tok", Profile{ID: "7", Email: "a@b.c"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	again, err := LoadSession(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	user, ok := again.User()
	if !ok || user.Email != "a@b.c" {
		t.Errorf("reloaded user = %+v, %v", user, ok)
	}

	if err := again.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("credentials file still present: %v", err)
	}
}

func TestInvalidateFiresOnceUnderConcurrency(t *testing.T) {
	s, _ := LoadSession(filepath.Join(t.TempDir(), "session.yaml"))
	var fired int32
	s.OnInvalidate(func() { atomic.AddInt32(&fired, 1) })
	_ = s.Set("tok-1", Profile{ID: "1"})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Invalidate("tok-1")
		}()
	}
	wg.Wait()

	if fired != 1 {
		t.Errorf("hook fired %d times, want 1", fired)
	}
	if s.LoggedIn() {
		t.Error("session still signed in")
	}
}

func TestInvalidateIgnoresStaleToken(t *testing.T) {
	s, _ := LoadSession("")
	var fired int32
	s.OnInvalidate(func() { atomic.AddInt32(&fired, 1) })
	_ = s.Set("new-token", Profile{})

	if ok, _ := s.Invalidate("old-token"); ok {
		t.Error("stale token invalidated the new session")
	}
	if !s.LoggedIn() || fired != 0 {
		t.Errorf("logged in = %v, fired = %d", s.LoggedIn(), fired)
	}
}

func TestInvalidateReportsStaleCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("tok-1", Profile{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	// a non-empty directory in place of the file cannot be removed
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "keep"), 0o700); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Invalidate("tok-1")
	if !ok {
		t.Fatal("current token not invalidated")
	}
	if err == nil {
		t.Error("failed removal of the credentials file was not reported")
	}
	if s.LoggedIn() {
		t.Error("session still signed in")
	}
}

func TestBearerRejectsExpiredJWT(t *testing.T) {
	s, _ := LoadSession("")
	var fired int32
	s.OnInvalidate(func() { atomic.AddInt32(&fired, 1) })

	_ = s.Set(signed(t, time.Now().Add(-time.Minute)), Profile{})
	if _, err := s.bearer(); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expired token err = %v", err)
	}
	if fired != 1 || s.LoggedIn() {
		t.Errorf("fired = %d, logged in = %v", fired, s.LoggedIn())
	}

	live := signed(t, time.Now().Add(time.Hour))
	_ = s.Set(live, Profile{})
	if tok, err := s.bearer(); err != nil || tok != live {
		t.Errorf("live token = %q, %v", tok, err)
	}

	_ = s.Set("opaque-token", Profile{})
	if tok, err := s.bearer(); err != nil || tok != "opaque-token" {
		t.Errorf("opaque token = %q, %v", tok, err)
	}
}

func TestBearerSignedOut(t *testing.T) {
	s, _ := LoadSession("")
	if _, err := s.bearer(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err = %v", err)
	}
}
