package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const DefaultErrorMessage = "An error occurred"

var (
	// ErrUnauthorized means the remote service rejected the session. The
	// session has already been invalidated when a caller sees it.
	ErrUnauthorized = errors.New("session expired, please log in again")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// APIError is any non-2xx answer other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %d %s", e.Status, e.Message)
}

// Message returns the human-readable text to show for err, or fallback when
// err carries none.
func Message(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotLoggedIn):
		return err.Error()
	}
	if fallback == "" {
		return DefaultErrorMessage
	}
	return fallback
}

// ErrorMessage extracts a message from an error response body. Servers in the
// wild answer with a plain string, {"error":"..."}, {"error":{"message":"..."}},
// {"message":"..."} or {"message":{"message":"..."}}; the first non-empty
// string wins, then a JSON rendering of an object-valued error or message,
// then fallback.
func ErrorMessage(body []byte, fallback string) string {
	if fallback == "" {
		fallback = DefaultErrorMessage
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fallback
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}

	switch data := v.(type) {
	case string:
		if data != "" {
			return data
		}
		return fallback
	case map[string]any:
		candidates := []any{
			field(data["error"], "message"),
			data["error"],
			field(data["message"], "message"),
			data["message"],
		}
		for _, c := range candidates {
			if s, ok := c.(string); ok && s != "" {
				return s
			}
		}
		for _, key := range []string{"error", "message"} {
			if obj, ok := data[key].(map[string]any); ok {
				if b, err := json.Marshal(obj); err == nil {
					return string(b)
				}
			}
		}
	}
	return fallback
}

func field(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return nil
}
