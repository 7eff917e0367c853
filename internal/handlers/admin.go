package handlers

import (
	"net/http"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/services"
	"github.com/diewo77/portfolio-pilot/internal/verification"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
)

// AdminHandler serves the administrator console. Routes are mounted behind
// the allow-list middleware.
type AdminHandler struct {
	Service *services.AdminService
	Engine  *verification.Engine
}

func NewAdminHandler(s *services.AdminService, e *verification.Engine) *AdminHandler {
	return &AdminHandler{Service: s, Engine: e}
}

// Me handles GET /api/admin/me.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	st, err := h.Service.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"email": id.Email, "stats": st})
}

// Roles handles GET /api/admin/roles.
func (h *AdminHandler) Roles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.Profiles(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profiles": profiles, "roles": models.Roles})
}

// ChangeRole handles PATCH /api/admin/roles.
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var in services.RoleChange
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.Service.ChangeRole(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

// Queue handles GET /api/admin/verification?status=.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.Queue(r.Context(), models.RequestStatus(r.URL.Query().Get("status")))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"requests": items})
}

type moderateBody struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// Moderate handles PATCH /api/admin/verification.
func (h *AdminHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var body moderateBody
	if err := httpx.Decode(w, r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	requestID, err := uuid.Parse(body.ID)
	if err != nil {
		httpx.Error(w, r, apperr.Invalid("validation_failed", validation.Violations{"id": "invalid"}))
		return
	}
	out, err := h.Engine.Moderate(r.Context(), id.Email, requestID, verification.Decision(body.Action), body.Comment)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, out)
}
