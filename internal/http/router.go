// Package httpapi assembles the HTTP surface: shared middleware, health and
// metrics endpoints, and the authenticated API routes.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dor/internal/platform/metrics"
	"dor/pkg/platform/httputil"
	authmw "dor/pkg/platform/middleware/auth"
	"dor/pkg/platform/middleware/metadata"
	"dor/pkg/platform/middleware/request"
	"dor/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// JWT and Basic authenticate API routes. With both nil the API is open.
	JWT    authmw.JWTValidator
	Basic  authmw.BasicAuthenticator
	Checks map[string]HealthCheck
	Routes []Registrar
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger, d.Metrics))

	r.Get("/healthz", health(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.JWT != nil || d.Basic != nil {
			r.Use(authmw.RequireAuth(d.JWT, d.Basic, logger))
		}
		for _, reg := range d.Routes {
			reg.Register(r)
		}
	})
	return r
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, name := range names {
			if resp.Checks == nil {
				resp.Checks = map[string]string{}
			}
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
