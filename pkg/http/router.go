package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tao_dividends_api/internal/handler"
	"tao_dividends_api/pkg/config"
)

func NewRouter(cfg *config.Config, newService handler.ServiceFactory) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
			zap.L().Error("failed to encode health check response", zap.Error(err))
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	h := handler.NewHandler(newService)
	r.Route(cfg.Server.APIPrefix, func(api chi.Router) {
		api.Use(handler.RequireBearer(cfg.Server.Token))
		h.Register(api)
	})

	return r
}
