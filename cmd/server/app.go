package main

import (
	"net/http"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/i18n"
	"github.com/diewo77/portfolio-pilot/internal/models"
	"go.uber.org/zap"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	routerCfg *RouterConfig
	verifier  auth.TokenVerifier
}

// NewApp creates a new application with all routes configured.
func NewApp(routerCfg *RouterConfig, verifier auth.TokenVerifier) *App {
	app := &App{
		mux:       http.NewServeMux(),
		routerCfg: routerCfg,
		verifier:  verifier,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply global middleware: bearer identity + language preference
	handler := auth.Middleware(a.verifier)(withPreferences(a.mux))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	cfg := a.routerCfg

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /healthz", cfg.Health.Health)
	a.mux.HandleFunc("GET /api/verification/verify", cfg.Verification.Verify)
	a.mux.HandleFunc("GET /api/profiles", cfg.Profiles.Directory)
	a.mux.HandleFunc("GET /api/profiles/{username}", cfg.Profiles.Public)
	a.mux.HandleFunc("GET /api/achievements/types", cfg.Achievements.Types)
	a.mux.HandleFunc("POST /api/auth/magic-link", cfg.Auth.MagicLink)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (any role)
	// ─────────────────────────────────────────────────────────────────────────
	ph := cfg.Profiles
	a.mux.Handle("GET /api/me", a.requireAuth(ph.Me))
	a.mux.Handle("POST /api/profile", a.requireAuth(ph.Register))
	a.mux.Handle("PATCH /api/profile", a.requireAuth(ph.Update))

	// Achievements - ownership is checked per resource by the gate
	ach := cfg.Achievements
	a.mux.Handle("GET /api/achievements", a.requireAuth(ach.List))
	a.mux.Handle("POST /api/achievements", a.requireAuth(ach.Create))
	a.mux.Handle("GET /api/achievements/{id}", a.requireAuth(ach.View))
	a.mux.Handle("PATCH /api/achievements/{id}", a.requireAuth(ach.Update))
	a.mux.Handle("DELETE /api/achievements/{id}", a.requireAuth(ach.Delete))

	// Verification - responding is bound to the invited email, not a role
	vh := cfg.Verification
	a.mux.Handle("POST /api/verification/request", a.requireAuth(vh.Request))
	a.mux.Handle("POST /api/verification/respond", a.requireAuth(vh.Respond))

	// ─────────────────────────────────────────────────────────────────────────
	// Role routes (exact stored role)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/verifier/requests", a.requireRole(models.RoleVerifier, vh.Workspace))
	a.mux.Handle("GET /api/counselor/students", a.requireRole(models.RoleCounselor, cfg.Counselor.Students))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (email allow-list)
	// ─────────────────────────────────────────────────────────────────────────
	ah := cfg.Admin
	a.mux.Handle("GET /api/admin/me", a.requireAdmin(ah.Me))
	a.mux.Handle("GET /api/admin/roles", a.requireAdmin(ah.Roles))
	a.mux.Handle("PATCH /api/admin/roles", a.requireAdmin(ah.ChangeRole))
	a.mux.Handle("GET /api/admin/verification", a.requireAdmin(ah.Queue))
	a.mux.Handle("PATCH /api/admin/verification", a.requireAdmin(ah.Moderate))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth wraps a handler to require an identity.
func (a *App) requireAuth(next http.HandlerFunc) http.Handler {
	return auth.RequireAuth(next)
}

// requireRole wraps a handler to require an identity holding role.
func (a *App) requireRole(role models.Role, next http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.routerCfg.Gate.RequireRole(role)(next))
}

// requireAdmin wraps a handler to require an allow-listed email.
func (a *App) requireAdmin(next http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.routerCfg.Gate.RequireAdmin()(next))
}

// withPreferences injects the language preference from query, cookie or
// Accept-Language.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = c.Value
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = q
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    i18n.Normalize(lang),
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging middleware.
func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(httpx.WithLogger(r.Context(), log)))
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
