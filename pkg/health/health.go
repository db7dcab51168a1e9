// Package health reports whether the service's dependencies are reachable.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	StatusOK   = "ok"
	StatusDown = "down"

	shutdownTimeout = 5 * time.Second
)

type (
	// Healther is implemented by every component that takes part in health
	// checks. IsHealthy must answer quickly; the endpoint calls it on every request.
	Healther interface {
		IsHealthy() bool
	}

	component struct {
		name     string
		healther Healther
	}

	// Report is the body of the health endpoint
	Report struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}

	HealthChecker struct {
		logger     *logger.Logger
		components []component
	}
)

func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{logger: logger}
}

// Register adds a named component. Nil healthers are ignored so optional
// components can be registered unconditionally.
func (h *HealthChecker) Register(name string, healther Healther) *HealthChecker {
	if healther != nil {
		h.components = append(h.components, component{name: name, healther: healther})
	}
	return h
}

// Check asks every component. All of them are asked even after one failed.
func (h *HealthChecker) Check() Report {
	report := Report{
		Status:     StatusOK,
		Components: make(map[string]string, len(h.components)),
	}

	for _, c := range h.components {
		if c.healther.IsHealthy() {
			report.Components[c.name] = StatusOK
			continue
		}

		report.Status = StatusDown
		report.Components[c.name] = StatusDown
		h.logger.Error("health check failed", zap.String("component", c.name))
	}

	return report
}

// HealthCheck answers 200 when every component is healthy and 503 otherwise
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Check()

	status := http.StatusOK
	if report.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(report)
}

// Serve runs a dedicated server for GET /health on addr until ctx is done
func (h *HealthChecker) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return RunServer(ctx, srv, h.logger)
}

// RunServer serves srv until ctx is done, then shuts it down gracefully
func RunServer(ctx context.Context, srv *http.Server, logger *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("http server failed", zap.String("addr", srv.Addr), zap.Error(err))
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("stopping http server", zap.String("addr", srv.Addr))
		return srv.Shutdown(shutdownCtx)
	}
}
