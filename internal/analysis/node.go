package analysis

import (
	"encoding/json"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// sanitize strips any markup the model put in its prose. The policy
// entity-encodes what it keeps, so the text is unescaped back to plain form.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}

// node wraps a decoded JSON value. Every accessor tolerates a missing or
// mistyped value and returns a zero result instead.
type node struct{ v any }

func parse(raw []byte) node {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return node{}
	}
	return node{v: v}
}

func (n node) exists() bool { return n.v != nil }

func (n node) object() (map[string]any, bool) {
	m, ok := n.v.(map[string]any)
	return m, ok
}

func (n node) get(key string) node {
	m, ok := n.object()
	if !ok {
		return node{}
	}
	return node{v: m[key]}
}

func (n node) path(keys ...string) node {
	for _, k := range keys {
		n = n.get(k)
	}
	return n
}

// first returns the first present child among keys.
func (n node) first(keys ...string) node {
	for _, k := range keys {
		if c := n.get(k); c.exists() {
			return c
		}
	}
	return node{}
}

// str returns sanitized text. Numbers are formatted; objects and arrays read as "".
func (n node) str() string {
	switch v := n.v.(type) {
	case string:
		return sanitize(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// num reads a bare number or a numeric string such as "7", "7/10" or "+12%".
func (n node) num() Score {
	switch v := n.v.(type) {
	case float64:
		return Of(v)
	case string:
		return parseNumber(v)
	default:
		return Score{}
	}
}

// score reads a number, or an object carrying score or overall.
func (n node) score() Score {
	if s := n.num(); s.Valid {
		return s
	}
	if _, ok := n.object(); !ok {
		return Score{}
	}
	for _, k := range []string{"score", "overall", "average"} {
		if s := n.get(k).num(); s.Valid {
			return s
		}
	}
	return Score{}
}

func (n node) list() []node {
	arr, ok := n.v.([]any)
	if !ok {
		return nil
	}
	out := make([]node, len(arr))
	for i, v := range arr {
		out[i] = node{v: v}
	}
	return out
}

func (n node) strings() []string {
	if s := n.str(); s != "" {
		return []string{s}
	}
	var out []string
	for _, c := range n.list() {
		if s := c.str(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (n node) keys() []string {
	m, ok := n.object()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseNumber(s string) Score {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(s), "%"), "점"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	return Of(v)
}
