package handlers

import (
	"net/http"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/services"
)

type ProfileHandler struct {
	Service *services.ProfileService
}

func NewProfileHandler(s *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Service: s}
}

// Me handles GET /api/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	me, err := h.Service.Me(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, me)
}

// Register handles POST /api/profile.
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in services.ProfileInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.Service.Register(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p)
}

// Update handles PATCH /api/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in services.ProfileInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

// Public handles GET /api/profiles/{username}.
func (h *ProfileHandler) Public(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Public(r.Context(), r.PathValue("username"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

// Directory handles GET /api/profiles?q=&region=&sort=.
func (h *ProfileHandler) Directory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Service.Directory(r.Context(), services.DirectoryQuery{
		Query:  q.Get("q"),
		Region: q.Get("region"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"profiles": entries})
}
