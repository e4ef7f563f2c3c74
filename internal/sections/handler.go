package sections

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-content/internal/contents"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/query"
	"github.com/GyroZepelix/mithril-content/internal/server"
)

// Handler provides the HTTP handlers of /api/sections.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the section routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/count", h.Count)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// handleServiceError writes the failure response for a service error.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.Fail(w, "invalid section")
	case errors.Is(err, contents.ErrNotFound):
		server.Fail(w, "invalid content")
	case errors.Is(err, model.ErrMissingScope),
		errors.Is(err, model.ErrMissingTenant),
		errors.Is(err, server.ErrInvalidBody):
		server.Fail(w, err.Error())
	default:
		slog.Error("section service error", "error", err)
		server.Fail(w, "internal error")
	}
}

func queryFilter(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		Scope: model.Scope{
			UserID:    q.Get("userId"),
			ProjectID: q.Get("projectId"),
			ContentID: q.Get("contentId"),
		},
		ParentID: q.Get("parent_id"),
		Code:     q.Get("section_code"),
		Params:   query.ParseParams(q),
	}
}

func queryTenant(r *http.Request) model.Tenant {
	q := r.URL.Query()
	return model.Tenant{UserID: q.Get("userId"), ProjectID: q.Get("projectId")}
}

func bodyScope(data map[string]any) model.Scope {
	return model.Scope{
		UserID:    server.Str(data, "userId"),
		ProjectID: server.Str(data, "projectId"),
		ContentID: server.Str(data, "contentId"),
	}
}

// List handles GET /api/sections.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := server.ParsePage(r.URL.Query(), DefaultLimit)

	res, err := h.service.List(r.Context(), queryFilter(r), page.Limit, page.Offset())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, res)
}

// Count handles GET /api/sections/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context(), queryFilter(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"count": n})
}

// Get handles GET /api/sections/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sec, err := h.service.Get(r.Context(), queryTenant(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"section": sec})
}

// Create handles POST /api/sections.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := server.DecodeBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sec, errs, err := h.service.Create(r.Context(), bodyScope(data), data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "section", sec, errs)
}

// Update handles PUT /api/sections/{id}. The body id must match the path.
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

	sec, errs, err := h.service.Update(r.Context(), bodyScope(data), id, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "section", sec, errs)
}

// Delete handles DELETE /api/sections/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), queryTenant(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{})
}
