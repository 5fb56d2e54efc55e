package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricenotifier/internal/handler"
	"pricenotifier/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger           *slog.Logger
	Handler          *handler.Handler
	WatchlistHandler *handler.WatchlistHandler
	SettingsHandler  *handler.SettingsHandler
	RegionHandler    *handler.RegionHandler
	AdminHandler     *handler.AdminHandler
	APIKeys          []string

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Public routes
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))

		r.Route("/api/v1", func(r chi.Router) {
			if h := cfg.WatchlistHandler; h != nil {
				r.Route("/watchlist", func(r chi.Router) {
					r.Get("/", h.List)
					r.Post("/", h.Add)
					r.Delete("/", h.Clear)
					r.Post("/ack", h.AcknowledgeAll)
					r.Post("/fetch", h.FetchAll)
					r.Post("/retainer-listings", h.ObserveRetainerListings)

					r.Route("/{item_id}", func(r chi.Router) {
						r.Delete("/", h.Remove)
						r.Put("/threshold", h.SetThreshold)
						r.Put("/quality", h.SetQuality)
						r.Post("/flags/{flag}/toggle", h.ToggleFlag)
						r.Post("/ack", h.Acknowledge)
						r.Post("/fetch", h.FetchItem)
					})
				})
			}

			if h := cfg.SettingsHandler; h != nil {
				r.Get("/settings", h.Get)
				r.Put("/settings", h.Update)
				r.Get("/scheduler", h.Scheduler)
				r.Put("/scheduler", h.SetScheduler)
			}

			if h := cfg.RegionHandler; h != nil {
				r.Get("/region", h.Get)
				r.Put("/region", h.Observe)
				r.Delete("/region", h.Forget)
			}

			if h := cfg.AdminHandler; h != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", h.GetStats)
					r.Post("/save", h.Save)
					r.Get("/notifications", h.RecentNotifications)
				})
			}
		})
	})

	return r
}
