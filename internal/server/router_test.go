package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-content/internal/validate"
)

type fakeDB struct{ err error }

func (f fakeDB) Health(context.Context) error { return f.err }

type echoResource struct{ name string }

func (e echoResource) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"resource": e.name})
	})
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"resource": e.name})
	})
	return r
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name string
		db   HealthChecker
		want int
	}{
		{"no database", nil, http.StatusOK},
		{"healthy", fakeDB{}, http.StatusOK},
		{"unhealthy", fakeDB{err: errors.New("down")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Dependencies{DB: tt.db})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRouter_MountsResources(t *testing.T) {
	router := NewRouter(Dependencies{
		Entries:      echoResource{"entries"},
		Translations: echoResource{"translations"},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	if !strings.Contains(rr.Body.String(), `"entries"`) {
		t.Errorf("body = %s, want entries resource", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/contents", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unmounted resource status = %d, want 404", rr.Code)
	}
}

func TestRouter_RequiresJSON(t *testing.T) {
	router := NewRouter(Dependencies{Entries: echoResource{"entries"}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnsupportedMediaType)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRouter_AuthMiddleware(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Error(w, http.StatusUnauthorized, "unauthorized", "denied")
		})
	}
	router := NewRouter(Dependencies{
		Entries:        echoResource{"entries"},
		AuthMiddleware: deny,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rr.Code)
	}
}

func TestFail(t *testing.T) {
	rr := httptest.NewRecorder()
	Fail(rr, "invalid entry")

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != CodeServerError || body["description"] != "invalid entry" {
		t.Errorf("body = %v", body)
	}
}

func TestMutation(t *testing.T) {
	rr := httptest.NewRecorder()
	Mutation(rr, "entry", map[string]string{"id": "e1"}, validate.Errors{})
	want := `{"entry":{"id":"e1"},"userErrors":[]}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}

	var errs validate.Errors
	errs.Add(validate.Path{"doc", "title"}, validate.MsgRequired)
	rr = httptest.NewRecorder()
	Mutation(rr, "entry", map[string]string{"id": "e1"}, errs)
	want = `{"entry":null,"userErrors":[{"field":["doc","title"],"message":"Value is required"}]}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}
