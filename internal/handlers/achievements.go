package handlers

import (
	"net/http"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/services"
	"github.com/google/uuid"
)

type AchievementHandler struct {
	Service *services.AchievementService
}

func NewAchievementHandler(s *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{Service: s}
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	items, err := h.Service.List(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in services.AchievementInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	a, err := h.Service.Create(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, a)
}

func (h *AchievementHandler) View(w http.ResponseWriter, r *http.Request) {
	achievementID, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.Service.Get(r.Context(), achievementID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, a)
}

func (h *AchievementHandler) Update(w http.ResponseWriter, r *http.Request) {
	achievementID, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.AchievementInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	a, err := h.Service.Update(r.Context(), achievementID, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, a)
}

func (h *AchievementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	achievementID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), achievementID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": achievementID})
}

// Types handles GET /api/achievements/types.
func (h *AchievementHandler) Types(w http.ResponseWriter, _ *http.Request) {
	httpx.OK(w, http.StatusOK, map[models.Category][]string{
		models.CategoryAward:    models.TypesFor(models.CategoryAward),
		models.CategoryActivity: models.TypesFor(models.CategoryActivity),
	})
}

// pathID parses the {id} path value, answering 404 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.Error(w, r, apperr.NotFound("achievement_not_found", "achievement %q not found", r.PathValue("id")))
		return uuid.Nil, false
	}
	return id, true
}
