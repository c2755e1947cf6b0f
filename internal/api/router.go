// Package api serves the query log over HTTP: the filtered logs, the
// dashboard aggregates, alerts, settings, import control and exports.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/your-username/pihole-log-viewer/internal/cache"
	"github.com/your-username/pihole-log-viewer/internal/export"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/monitoring"
	"github.com/your-username/pihole-log-viewer/internal/settings"
	"github.com/your-username/pihole-log-viewer/internal/websocket"
)

// Store is the read side of the query database
type Store interface {
	QueryLogs(ctx context.Context, spec filter.Spec) ([]models.LogEntry, int, error)
	TopDomains(ctx context.Context, date string, limit int) ([]models.AggregateItem, error)
	TopBlockedDomains(ctx context.Context, date string, limit int) ([]models.AggregateItem, error)
	TopClients(ctx context.Context, date string, limit int) ([]models.AggregateItem, error)
	ActivitySeries(ctx context.Context, date string) (models.ChartSeries, error)
	Stats(ctx context.Context, date string) (models.Stats, error)
	RecentActivity(ctx context.Context, limit int) ([]models.Activity, error)
}

type SettingsStore interface {
	Load() (settings.Settings, error)
	Merge(patch map[string]interface{}) (settings.Settings, error)
}

// Updater runs imports on demand
type Updater interface {
	RunNow(ctx context.Context) (models.ImportResult, error)
	LastUpdate() models.LastUpdate
}

type Alerter interface {
	Current(ctx context.Context) ([]models.AlertItem, error)
	Check(ctx context.Context) ([]models.AlertItem, error)
	TestNotification(ctx context.Context) error
}

// Deps holds what the handlers need. Cache, Hub, Metrics and Health are
// optional.
type Deps struct {
	Store    Store
	Settings SettingsStore
	Updater  Updater
	Alerts   Alerter
	Cache    *cache.QueryCache
	Exporter *export.Exporter
	Hub      *websocket.Hub
	Metrics  *monitoring.Metrics
	Health   *monitoring.HealthMonitor

	Location    *time.Location
	JWTSecret   string
	CORSOrigins []string
}

type Server struct {
	deps Deps
	loc  *time.Location
	now  func() time.Time
}

func NewServer(deps Deps) *Server {
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Server{deps: deps, loc: loc, now: time.Now}
}

// Routes builds the chi router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}

	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.deps.Health != nil {
		r.Get("/health", s.deps.Health.HTTPHandler())
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		// long lived, so outside the request timeout
		if s.deps.Hub != nil {
			r.Get("/ws", websocket.HandleWebSocket(s.deps.Hub, s.checkOrigin))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/logs", s.Logs)
			r.Get("/export", s.Export)

			r.Get("/stats", s.Stats)
			r.Get("/activity-chart", s.ActivityChart)
			r.Get("/top-domains", s.TopDomains)
			r.Get("/top-blocked-domains", s.TopBlockedDomains)
			r.Get("/top-ips", s.TopIPs)
			r.Get("/recent-activity", s.RecentActivity)

			r.Get("/alerts", s.Alerts)
			r.Get("/check-alerts", s.CheckAlerts)
			r.Post("/test-notification", s.TestNotification)

			r.Get("/config", s.GetConfig)
			r.Post("/config", s.SaveConfig)

			r.Get("/last-update", s.LastUpdate)
			r.Get("/update-data", s.UpdateData)
			r.Post("/update-data", s.UpdateData)
		})
	})

	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.deps.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return len(s.deps.CORSOrigins) == 0
}
