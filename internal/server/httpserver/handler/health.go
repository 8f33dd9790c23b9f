package handler

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds each health check.
const healthTimeout = 2 * time.Second

// Health handles GET /health. It runs every registered check and answers
// 503 when any fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: h.cfg.Version,
		Time:    time.Now().UTC(),
	}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				h.log.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "failing"
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	WriteJSON(w, r, status, resp)
}
