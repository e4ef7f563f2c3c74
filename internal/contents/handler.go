package contents

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/server"
)

// Handler provides the HTTP handlers of /api/contents.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the content routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/count", h.Count)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	return r
}

// handleServiceError writes the failure response for a service error.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.Fail(w, "invalid content")
	case errors.Is(err, model.ErrMissingTenant),
		errors.Is(err, server.ErrInvalidBody):
		server.Fail(w, err.Error())
	default:
		slog.Error("content service error", "error", err)
		server.Fail(w, "internal error")
	}
}

func queryTenant(r *http.Request) model.Tenant {
	q := r.URL.Query()
	return model.Tenant{UserID: q.Get("userId"), ProjectID: q.Get("projectId")}
}

func queryFilter(r *http.Request) Filter {
	return Filter{Tenant: queryTenant(r), Code: r.URL.Query().Get("code")}
}

// List handles GET /api/contents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := server.ParsePage(r.URL.Query(), server.DefaultLimit)

	items, err := h.service.List(r.Context(), queryFilter(r), page.Limit, page.Offset())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"contents": items})
}

// Count handles GET /api/contents/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context(), queryFilter(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"count": n})
}

// Get handles GET /api/contents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), queryTenant(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{"content": c})
}

// Create handles POST /api/contents.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := server.DecodeBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	tenant := model.Tenant{UserID: server.Str(data, "userId"), ProjectID: server.Str(data, "projectId")}
	c, errs, err := h.service.Create(r.Context(), tenant, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "content", c, errs)
}

// Update handles PUT /api/contents/{id}. The body id must match the path.
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

	tenant := model.Tenant{UserID: server.Str(data, "userId"), ProjectID: server.Str(data, "projectId")}
	c, errs, err := h.service.Update(r.Context(), tenant, id, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	server.Mutation(w, "content", c, errs)
}
