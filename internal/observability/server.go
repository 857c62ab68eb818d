package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether the daemon's snapshot (policy cache,
// override tree, store roots) is currently loaded and serving.
type HealthChecker interface {
	Healthy() bool
}

// Server is the metrics/health HTTP listener, run as a suture.Service
// under internal/supervisor's observability layer.
type Server struct {
	Addr    string
	Timeout time.Duration
	Checker HealthChecker

	srv *http.Server
}

// Serve builds the chi router, starts listening on Addr, and blocks
// until ctx is canceled, at which point it shuts the listener down
// within Timeout. Satisfies suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", s.handleHealthz)

	timeout := s.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           r,
		ReadHeaderTimeout: timeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.Checker != nil && !s.Checker.Healthy() {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(healthResponse{Status: status}) //nolint:errcheck
}
