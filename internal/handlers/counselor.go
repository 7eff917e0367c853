package handlers

import (
	"net/http"

	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/services"
)

type CounselorHandler struct {
	Service *services.CounselorService
	Gate    *policy.RoleGate
}

func NewCounselorHandler(s *services.CounselorService, g *policy.RoleGate) *CounselorHandler {
	return &CounselorHandler{Service: s, Gate: g}
}

// Students handles GET /api/counselor/students?readiness=&q=. The listing is
// limited to the counselor's own school when one is set.
func (h *CounselorHandler) Students(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Gate.Subject(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	q := r.URL.Query()
	d, err := h.Service.Students(r.Context(), sub.School(), q.Get("q"), policy.Readiness(q.Get("readiness")))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, d)
}
