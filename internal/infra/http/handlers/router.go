package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/infra/http/middleware"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type RouterConfig struct {
	// Ctx bounds background work owned by the router. Nil means Background.
	Ctx            context.Context
	Controller     *usecase.LifecycleController
	Health         *HealthHandler
	AllowedOrigins []string
	// Auth guards /api/admin. Nil leaves the API open with the default tenant.
	Auth func(http.Handler) http.Handler
	Log  logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	leads := NewLeadHandler(ctx, cfg.Controller, cfg.Log)
	sequences := NewSequenceHandler(cfg.Controller, cfg.Log)
	followUps := NewFollowUpHandler(cfg.Controller, cfg.Log)
	admin := NewAdminHandler(cfg.Controller, cfg.Log)
	stream := NewStreamHandler(cfg.Controller, cfg.AllowedOrigins, cfg.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/admin", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		r.Route("/leads", leads.Routes)
		r.Route("/sequences", sequences.Routes)
		r.Route("/followups", followUps.Routes)
		r.Route("/users", admin.UserRoutes)
		r.Route("/qr-codes", admin.QRCodeRoutes)
		r.Get("/stream", stream.Handle)
	})
	return r
}
