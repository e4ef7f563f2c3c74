package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodySize is the maximum allowed request body size (1 MiB).
const maxBodySize = 1 << 20

// ErrInvalidBody is returned by DecodeBody for unreadable bodies.
var ErrInvalidBody = errors.New("invalid or too-large JSON body")

// Page limits. A limit above MaxLimit falls back to the default.
const (
	DefaultLimit = 10
	MaxLimit     = 250
)

// DecodeBody reads a JSON object body. Numbers are decoded as float64.
func DecodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var data map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, ErrInvalidBody
	}
	if data == nil {
		data = map[string]any{}
	}

	convertNumbers(data)
	return data, nil
}

// convertNumbers walks decoded JSON and replaces json.Number values with
// float64 in place.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, val := range t {
			t[k] = convertNumbers(val)
		}
	case []any:
		for i, val := range t {
			t[i] = convertNumbers(val)
		}
	}
	return v
}

// Page is a parsed limit/page pair.
type Page struct {
	Limit int
	Page  int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads limit and page from q. Invalid values fall back to the
// defaults; a limit above MaxLimit falls back to defaultLimit.
func ParsePage(q url.Values, defaultLimit int) Page {
	p := Page{Limit: defaultLimit, Page: 1}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= MaxLimit {
			p.Limit = n
		}
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	return p
}

// SplitIDs splits a comma separated id list, dropping blanks.
func SplitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Str returns data[key] when it is a string, "" otherwise.
func Str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
