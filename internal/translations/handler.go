package translations

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-content/internal/contents"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/server"
)

// Handler provides the HTTP handlers of /api/translations.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the translation routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/ids", h.ListByIDs)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	return r
}

// handleServiceError writes the failure response for a service error.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.Fail(w, "invalid translation")
	case errors.Is(err, contents.ErrNotFound):
		server.Fail(w, "invalid content")
	case errors.Is(err, model.ErrMissingScope),
		errors.Is(err, ErrMissingSubject),
		errors.Is(err, server.ErrInvalidBody):
		server.Fail(w, err.Error())
	default:
		slog.Error("translation service error", "error", err)
		server.Fail(w, "internal error")
	}
}

func queryScope(r *http.Request) model.Scope {
	q := r.URL.Query()
	return model.Scope{
		UserID:    q.Get("userId"),
		ProjectID: q.Get("projectId"),
		ContentID: q.Get("contentId"),
	}
}

func queryFilter(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		Scope:     queryScope(r),
		Lang:      q.Get("lang"),
		Key:       q.Get("key"),
		Subject:   q.Get("subject"),
		SubjectID: q.Get("subjectId"),
	}
}

func bodyScope(data map[string]any) model.Scope {
	return model.Scope{
		UserID:    server.Str(data, "userId"),
		ProjectID: server.Str(data, "projectId"),
		ContentID: server.Str(data, "contentId"),
	}
}

// List handles GET /api/translations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queryFilter(r))
}

// ListByIDs handles POST /api/translations/ids. The body's entryIds and
// fileIds select the subjects; the query carries the scope and filters.
func (h *Handler) ListByIDs(w http.ResponseWriter, r *http.Request) {
	data, err := server.DecodeBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	f := queryFilter(r)
	for _, key := range []string{"entryIds", "fileIds"} {
		items, ok := data[key].([]any)
		if !ok {
			continue
		}
		if f.SubjectIDs == nil {
			f.SubjectIDs = []string{}
		}
		for _, item := range items {
			if id, ok := item.(string); ok {
				f.SubjectIDs = append(f.SubjectIDs, id)
			}
		}
	}
	h.list(w, r, f)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f Filter) {
	page := server.ParsePage(r.URL.Query(), server.DefaultLimit)

	out, err := h.service.List(r.Context(), f, page.Limit, page.Offset())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"translations": out})
}

// Get handles GET /api/translations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), queryScope(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"translation": t})
}

// Create handles POST /api/translations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := server.DecodeBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	t, errs, err := h.service.Create(r.Context(), bodyScope(data), server.Str(data, "subjectId"), data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "translation", t, errs)
}

// Update handles PUT /api/translations/{id}. The body id must match the
// path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	data, err := server.DecodeBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if server.Str(data, "id") != id {
		server.Fail(w, "id invalid")
		return
	}

	t, errs, err := h.service.Update(r.Context(), bodyScope(data), id, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "translation", t, errs)
}
