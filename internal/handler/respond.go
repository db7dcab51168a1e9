package handler

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

type errorBody struct {
	Error  string         `json:"error"`
	Issues []entity.Issue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden), errors.Is(err, entity.ErrResultsNotVisible):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrSurveyExpired):
		return http.StatusGone
	case errors.Is(err, entity.ErrAlreadyResponded):
		return http.StatusConflict
	case entity.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error; internal failures are logged and hidden
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, status, errorBody{Error: "validation failed", Issues: ve.Issues})
		return
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))

		if status == http.StatusServiceUnavailable {
			writeError(w, status, entity.ErrStoreUnavailable.Error())
			return
		}
		writeError(w, status, "internal error")
		return
	}

	writeError(w, status, err.Error())
}

// decode reads a JSON body into out
func decode(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err = sonic.Unmarshal(body, out); err != nil {
		return entity.NewValidationError("", "invalid request body")
	}
	return nil
}

// trustedProxies parses proxy addresses and CIDR ranges. Invalid entries are
// rejected by config validation and skipped here.
func trustedProxies(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return prefixes
}

func isTrusted(ip string, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address unless the peer is a trusted proxy. Behind
// a trusted proxy, X-Forwarded-For is walked from the right and the first hop
// that is not itself a trusted proxy wins; X-Real-IP is the fallback.
func clientIP(r *http.Request, proxies []netip.Prefix) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	if !isTrusted(peer, proxies) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if i == 0 || !isTrusted(hop, proxies) {
				return hop
			}
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		if _, err := netip.ParseAddr(ip); err == nil {
			return ip
		}
	}

	return peer
}
