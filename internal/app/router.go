// Package app wires configuration, adapters and usecases into a runnable
// HTTP surface, and hosts the cross-cutting background jobs.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/01382253386/ai-hr-decision-platform/internal/adapter/httpserver"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means all origins.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit the model-backed and mutating endpoints.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Post("/v1/problems/analyze", srv.AnalyzeHandler())
		wr.Post("/v1/candidates/score", srv.ScoreHandler())
		wr.Post("/v1/candidates/score-audited", srv.ScoreAuditedHandler())
		wr.Post("/v1/decisions", srv.DecisionCreateHandler())
		wr.Post("/v1/bias/detect", srv.BiasDetectHandler())
		wr.Post("/v1/bias/detect-file", srv.BiasDetectFileHandler())
		wr.Post("/v1/reports", srv.ReportHandler())
	})

	// Audit routes carry the optional admin guard: batch audits expose the
	// decision history.
	r.Group(func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		ar.Use(httpserver.AdminGuard(cfg))
		ar.Post("/v1/audits", srv.AuditCreateHandler())
		ar.Get("/v1/audits/{id}", srv.AuditGetHandler())
		ar.Get("/v1/decisions", srv.DecisionsListHandler())
	})

	r.Get("/", srv.RootHandler())
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
