package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ymalspace/search-gateway/internal/metasearch"
	"github.com/ymalspace/search-gateway/internal/middleware"
)

type RouterOptions struct {
	Service        *metasearch.Service
	Admin          AdminOptions
	AllowedOrigins []string
	Metrics        http.Handler
	Logger         *zap.Logger
}

func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	searchHandler := NewSearchHandler(opts.Service, logger)
	adminHandler := NewAdminHandler(opts.Admin, opts.Service.Catalog(), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimiddleware.Recoverer)

	// ── Public proxy, callable from any page ─────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler)
		r.Get("/api/search", searchHandler.Proxy)
		r.Options("/api/search", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
		}).Handler)

		r.Get("/search", searchHandler.Search)
		r.Get("/health", searchHandler.Health)
		if opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", opts.Metrics)
		}
		r.Post("/admin/login", adminHandler.Login)

		// ── Protected ────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(opts.Admin.JWTSecret))
			r.Get("/admin/promoted", adminHandler.ListPromoted)
			r.Post("/admin/promoted/reload", adminHandler.ReloadPromoted)
		})
	})

	return r
}
