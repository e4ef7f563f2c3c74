package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Resource is an API resource that mounts its own routes.
type Resource interface {
	Routes() chi.Router
}

// Dependencies holds everything the router wires into routes. Nil resources
// are not mounted.
type Dependencies struct {
	DB             HealthChecker
	Contents       Resource
	Entries        Resource
	Sections       Resource
	Translations   Resource
	Changes        Resource
	DevMode        bool
	CORSOrigins    []string
	AuthMiddleware func(http.Handler) http.Handler
}

// NewRouter builds the chi router with the full route tree and middleware
// stack.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.DevMode, deps.CORSOrigins))

	r.Get("/health", healthHandler(deps))

	r.Route("/api", func(r chi.Router) {
		r.Use(requireJSON)
		if deps.AuthMiddleware != nil {
			r.Use(deps.AuthMiddleware)
		}

		mount(r, "/contents", deps.Contents)
		mount(r, "/entries", deps.Entries)
		mount(r, "/sections", deps.Sections)
		mount(r, "/translations", deps.Translations)
		mount(r, "/changes", deps.Changes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotFound, "not_found", "route not found")
	})

	return r
}

func mount(r chi.Router, pattern string, res Resource) {
	if res != nil {
		r.Mount(pattern, res.Routes())
	}
}

// corsMiddleware allows the configured origins. Dev mode adds the local
// admin front-ends.
func corsMiddleware(devMode bool, origins []string) func(http.Handler) http.Handler {
	allowedOrigins := append([]string{}, origins...)
	if devMode {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://localhost:5173")
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// healthHandler pings the database.
func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.DB == nil {
			JSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		if err := deps.DB.Health(r.Context()); err != nil {
			Error(w, http.StatusServiceUnavailable, "db_unhealthy", "database health check failed")
			return
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
