package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/diewo77/portfolio-pilot/validation"
)

// MagicLinkSender asks the identity provider to email a sign-in link.
type MagicLinkSender interface {
	SendMagicLink(ctx context.Context, email, redirectTo string) error
}

// AuthHandler starts passwordless sign-in. Sessions themselves belong to
// the identity provider.
type AuthHandler struct {
	Sender    MagicLinkSender
	PublicURL string
}

func NewAuthHandler(sender MagicLinkSender, publicURL string) *AuthHandler {
	return &AuthHandler{Sender: sender, PublicURL: strings.TrimRight(publicURL, "/")}
}

type magicLinkBody struct {
	Email string `json:"email"`
	Next  string `json:"next"`
}

// MagicLink handles POST /api/auth/magic-link. After sign-in the provider
// sends the user to /auth/callback, which continues to next.
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var body magicLinkBody
	if err := httpx.Decode(w, r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	v := validation.Violations{}
	validation.Email("email", body.Email, v)
	next := safeNext(body.Next)
	if body.Next != "" && next == "" {
		v.Add("next", "invalid")
	}
	if !v.Empty() {
		httpx.Error(w, r, apperr.Invalid("validation_failed", v))
		return
	}
	if next == "" {
		next = "/"
	}

	redirect := h.PublicURL + "/auth/callback?next=" + url.QueryEscape(next)
	if err := h.Sender.SendMagicLink(r.Context(), validation.NormalizeEmail(body.Email), redirect); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"sent": true})
}

// safeNext accepts only same-origin absolute paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	return next
}
