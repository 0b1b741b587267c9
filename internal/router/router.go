package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"prstocks-api/internal/handler"
	"prstocks-api/internal/middleware"
	"prstocks-api/pkg/apierror"
	"prstocks-api/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler           *handler.Handler
	InventoryHandler  *handler.InventoryHandler
	UserHandler       *handler.UserHandler
	PreferenceHandler *handler.PreferenceHandler
	AdminHandler      *handler.AdminHandler

	// AdminGuard, when set, protects /api/admin and the preference list.
	AdminGuard func(http.Handler) http.Handler

	Logger *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader, middleware.AdminTokenHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("Not Found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, &apierror.Error{
			StatusCode: http.StatusMethodNotAllowed,
			Code:       "METHOD_NOT_ALLOWED",
			Message:    "Method Not Allowed",
		})
	})

	guard := cfg.AdminGuard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.UserHandler != nil {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.List)
				r.Post("/", cfg.UserHandler.Create)
				r.Post("/login", cfg.UserHandler.Login)
				r.Post("/verify", cfg.UserHandler.Verify)
				r.Delete("/{id}", cfg.UserHandler.Delete)

				if cfg.AdminHandler != nil {
					r.Post("/admin/verify", cfg.AdminHandler.Verify)
					r.Post("/admin/logout", cfg.AdminHandler.Logout)
				}
			})
		}

		if cfg.InventoryHandler != nil {
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/", cfg.InventoryHandler.Create)
				r.Get("/statistics", cfg.InventoryHandler.Statistics)
				r.Get("/stats", cfg.InventoryHandler.Statistics)
				r.Get("/search", cfg.InventoryHandler.Search)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.InventoryHandler.Get)
					r.Put("/", cfg.InventoryHandler.Update)
					r.Delete("/", cfg.InventoryHandler.Delete)
				})
			})
		}

		if cfg.PreferenceHandler != nil {
			r.Route("/preferences", func(r chi.Router) {
				r.With(guard).Get("/", cfg.PreferenceHandler.List)
				r.With(guard).Get("/users", cfg.PreferenceHandler.List)

				r.Route("/user/{username}", func(r chi.Router) {
					r.Get("/", cfg.PreferenceHandler.Get)
					r.Put("/", cfg.PreferenceHandler.Set)
					r.Post("/", cfg.PreferenceHandler.Set)
					r.Delete("/", cfg.PreferenceHandler.Delete)
				})

				// Legacy: the device id is used as the username. GET of a device
				// named "users" hits the list above; /user/users reaches the same key.
				r.Route("/{device_id}", func(r chi.Router) {
					r.Get("/", cfg.PreferenceHandler.Get)
					r.Put("/", cfg.PreferenceHandler.Set)
					r.Post("/", cfg.PreferenceHandler.Set)
					r.Delete("/", cfg.PreferenceHandler.Delete)
				})
			})
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(guard)
				r.Post("/clear-data", cfg.AdminHandler.ClearData)
				r.Get("/database-info", cfg.AdminHandler.DatabaseInfo)
				r.Get("/stats", cfg.AdminHandler.GetStats)
			})
		}
	})

	return r
}
