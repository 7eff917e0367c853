package main

import (
	"github.com/diewo77/portfolio-pilot/internal/handlers"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/services"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/internal/verification"
)

// RouterConfig holds configured handlers and the role gate for the application.
type RouterConfig struct {
	// Gate provides role checks and middleware
	Gate *policy.RoleGate

	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Profiles     *handlers.ProfileHandler
	Achievements *handlers.AchievementHandler
	Verification *handlers.VerificationHandler
	Counselor    *handlers.CounselorHandler
	Admin        *handlers.AdminHandler
}

// Deps are the long-lived components the handlers are built from.
type Deps struct {
	Store     *store.Store
	Gate      *policy.RoleGate
	Engine    *verification.Engine
	MagicLink handlers.MagicLinkSender
	Health    handlers.HealthCheck
	PublicURL string
}

// NewRouterConfig wires services and handlers together.
func NewRouterConfig(d Deps) *RouterConfig {
	return &RouterConfig{
		Gate:         d.Gate,
		Health:       handlers.NewHealthHandler(d.Health),
		Auth:         handlers.NewAuthHandler(d.MagicLink, d.PublicURL),
		Profiles:     handlers.NewProfileHandler(services.NewProfileService(d.Store, d.Gate)),
		Achievements: handlers.NewAchievementHandler(services.NewAchievementService(d.Store, d.Gate)),
		Verification: handlers.NewVerificationHandler(d.Engine),
		Counselor:    handlers.NewCounselorHandler(services.NewCounselorService(d.Store), d.Gate),
		Admin:        handlers.NewAdminHandler(services.NewAdminService(d.Store, d.Gate), d.Engine),
	}
}
