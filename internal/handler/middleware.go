package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Koyo-os/survey-service/internal/session"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimit rejects requests over the shared limit with 429
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "Server is at max capacity. Try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate attaches the caller's session. A request without a token is
// anonymous; a request with a bad token is refused.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), session.Anonymous())))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		sess, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			h.logger.Debug("rejected token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		h.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
