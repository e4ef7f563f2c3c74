package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/server"
)

// Handler serves the change log API.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the change log routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/changes. It returns a page of a project's change
// events, optionally filtered by action, subject and subjectId.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tenant := model.Tenant{UserID: q.Get("userId"), ProjectID: q.Get("projectId")}
	if err := tenant.Validate(); err != nil {
		server.Fail(w, err.Error())
		return
	}

	filters := Filters{
		ProjectID: tenant.ProjectID,
		Action:    q.Get("action"),
		Subject:   q.Get("subject"),
		SubjectID: q.Get("subjectId"),
	}
	page := server.ParsePage(q, server.DefaultLimit)

	changes, err := h.service.List(r.Context(), filters, page.Limit, page.Offset())
	if err != nil {
		slog.Error("change log list failed", "error", err)
		server.Fail(w, "internal error")
		return
	}
	if changes == nil {
		changes = []*Change{}
	}

	server.JSON(w, http.StatusOK, map[string]any{"changes": changes})
}
