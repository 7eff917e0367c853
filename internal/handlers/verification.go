package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"github.com/diewo77/portfolio-pilot/internal/verification"
	"github.com/diewo77/portfolio-pilot/validation"
	"github.com/google/uuid"
)

// VerificationHandler exposes the verification workflow: requesting,
// the public confirmation page and the verifier's response.
type VerificationHandler struct {
	Engine *verification.Engine
}

func NewVerificationHandler(e *verification.Engine) *VerificationHandler {
	return &VerificationHandler{Engine: e}
}

type requestBody struct {
	AchievementID string `json:"achievementId"`
	VerifierEmail string `json:"verifierEmail"`
	ProofLink     string `json:"proofLink"`
	Message       string `json:"message"`
}

// Request handles POST /api/verification/request.
// A failed email still answers 200 with a warning; the link can be shared by hand.
func (h *VerificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var body requestBody
	if err := httpx.Decode(w, r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	var achievementID uuid.UUID
	if raw := strings.TrimSpace(body.AchievementID); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("validation_failed", validation.Violations{"achievementId": "invalid"}))
			return
		}
		achievementID = parsed
	}

	res, err := h.Engine.Request(r.Context(), id, verification.RequestInput{
		AchievementID: achievementID,
		VerifierEmail: body.VerifierEmail,
		ProofLink:     body.ProofLink,
		Message:       body.Message,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if !res.EmailSent {
		httpx.OKWithWarning(w, http.StatusOK, res, "email_not_delivered")
		return
	}
	httpx.OK(w, http.StatusOK, res)
}

type verifyResponse struct {
	Request struct {
		ID            uuid.UUID `json:"id"`
		Status        string    `json:"status"`
		VerifierEmail string    `json:"verifier_email"`
		Message       *string   `json:"message,omitempty"`
	} `json:"request"`
	Achievement verification.AchievementSummary `json:"achievement"`
	StudentName string                          `json:"studentName"`
}

// Verify handles GET /api/verification/verify?token=T. Unknown tokens are
// 404; consumed or expired ones are 410 with the final status.
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	view, err := h.Engine.Lookup(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if !view.Open() {
		code := "link_already_used"
		if view.Status == models.RequestExpired {
			code = "link_expired"
		}
		gone := apperr.Gone(code, "verification link is no longer valid")
		gone.Details = map[string]any{"status": view.Status}
		httpx.Error(w, r, gone)
		return
	}

	var resp verifyResponse
	resp.Request.ID = view.RequestID
	resp.Request.Status = string(view.Status)
	resp.Request.VerifierEmail = view.VerifierEmail
	resp.Request.Message = view.Message
	resp.Achievement = view.Achievement
	resp.StudentName = view.StudentName
	httpx.OK(w, http.StatusOK, resp)
}

type respondBody struct {
	Token   string `json:"token"`
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// Respond handles POST /api/verification/respond.
func (h *VerificationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var body respondBody
	if err := httpx.Decode(w, r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	out, err := h.Engine.Respond(r.Context(), id, body.Token, verification.Decision(body.Action), body.Comment)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, out)
}

// Workspace handles GET /api/verifier/requests: pending requests bound to
// the signed-in verifier's email.
func (h *VerificationHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	items, err := h.Engine.ListForVerifier(r.Context(), id.Email)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"requests": items})
}
