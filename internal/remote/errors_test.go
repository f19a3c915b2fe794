package remote

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "fallback"},
		{"plain text", `Bad Gateway`, "Bad Gateway"},
		{"json string", `"quota exceeded"`, "quota exceeded"},
		{"nested error message", `{"error":{"message":"photo too large"},"message":"ignored"}`, "photo too large"},
		{"error string", `{"error":"invalid photo id"}`, "invalid photo id"},
		{"nested message", `{"message":{"message":"validation failed"}}`, "validation failed"},
		{"message string", `{"success":false,"message":"not yours"}`, "not yours"},
		{"empty strings skipped", `{"error":"","message":"second choice"}`, "second choice"},
		{"object error rendered", `{"error":{"code":42}}`, `{"code":42}`},
		{"object message rendered", `{"message":{"code":7}}`, `{"code":7}`},
		{"unknown shape", `{"detail":"nope"}`, "fallback"},
		{"array", `[1,2,3]`, "fallback"},
		{"number", `42`, "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorMessage([]byte(tc.body), "fallback"); got != tc.want {
				t.Errorf("ErrorMessage(%s) = %q, want %q", tc.body, got, tc.want)
			}
		})
	}
}

func TestErrorMessage_DefaultFallback(t *testing.T) {
	if got := ErrorMessage(nil, ""); got != DefaultErrorMessage {
		t.Errorf("got %q", got)
	}
}

func TestMessage(t *testing.T) {
	wrapped := fmt.Errorf("remote.Analyze: %w", &APIError{Status: 500, Message: "model overloaded"})
	if got := Message(wrapped, "x"); got != "model overloaded" {
		t.Errorf("api error message = %q", got)
	}
	if got := Message(errors.New("dial tcp: refused"), "Analysis failed"); got != "Analysis failed" {
		t.Errorf("transport error message = %q", got)
	}
	if got := Message(fmt.Errorf("x: %w", ErrUnauthorized), "y"); got != ErrUnauthorized.Error() {
		t.Errorf("unauthorized message = %q", got)
	}
}
