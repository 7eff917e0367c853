package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
)

// HealthCheck reports whether the database answers.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Check HealthCheck
}

func NewHealthHandler(check HealthCheck) *HealthHandler {
	return &HealthHandler{Check: check}
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Check(ctx); err != nil {
		httpx.Error(w, r, apperr.Dependency("dependency_failure", err))
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
}
