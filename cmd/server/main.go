package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/config"
	"github.com/diewo77/portfolio-pilot/internal/db"
	"github.com/diewo77/portfolio-pilot/internal/identity"
	"github.com/diewo77/portfolio-pilot/internal/logging"
	"github.com/diewo77/portfolio-pilot/internal/notify"
	"github.com/diewo77/portfolio-pilot/internal/policy"
	"github.com/diewo77/portfolio-pilot/internal/store"
	"github.com/diewo77/portfolio-pilot/internal/verification"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
	expireOnlyFlag  = flag.Bool("expire-only", false, "Expire stale verification requests and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// the logger is configured from cfg, so fall back to a default one
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logging.New(logging.Options{Name: "server", Level: cfg.Log.Level, Dev: cfg.App.Dev, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	dbConn, err := db.Open(cfg.Database, logging.NewGormLogger(log, cfg.App.Dev), log)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}

	// Handle migrate-only flag
	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed")
		return
	}

	// Handle seed-only flag
	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seeding completed")
		return
	}

	// Run migrations on startup if enabled
	if cfg.App.Migrations {
		if err := db.Migrate(dbConn); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed")
	}

	// Demo accounts only in dev mode
	if cfg.App.Dev {
		if err := db.Seed(dbConn); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
	}

	dispatcher, closeDispatcher := newDispatcher(cfg, log)
	defer closeDispatcher()

	st := store.New(dbConn)
	engine := verification.NewEngine(st, dispatcher, log.Named("verification"), verification.Options{
		PublicURL:   cfg.App.PublicURL,
		TTL:         cfg.App.VerificationTTL,
		SendTimeout: cfg.Mail.Timeout,
	})

	// Handle expire-only flag
	if *expireOnlyFlag {
		n, err := engine.ExpireStale(context.Background())
		if err != nil {
			log.Fatal("expiry failed", zap.Error(err))
		}
		log.Info("expired stale verification requests", zap.Int("count", n))
		return
	}

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = client.Close() }()
		rdb = client
		log.Info("role cache backed by redis", zap.String("addr", cfg.Redis.Addr))
	}
	roleGate := policy.NewRoleGate(st.Profiles, cfg.App.AdminEmails, rdb, cfg.Redis.ProfileCacheTTL, log.Named("gate"))
	if roleGate.AdminCount() == 0 {
		log.Warn("ADMIN_EMAILS is empty; admin routes will refuse everyone")
	}

	routerCfg := NewRouterConfig(Deps{
		Store:     st,
		Gate:      roleGate,
		Engine:    engine,
		MagicLink: identity.NewMagicLinkClient(cfg.Identity.BaseURL, cfg.Identity.AnonKey, cfg.Mail.Timeout),
		Health:    func(ctx context.Context) error { return db.Ping(ctx, dbConn) },
		PublicURL: cfg.App.PublicURL,
	})
	verifier := identity.NewJWTVerifier([]byte(cfg.Identity.JWTSecret), cfg.Identity.Issuer, cfg.Identity.Audience)
	appHandler := NewApp(routerCfg, verifier)

	// Create server with config timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(log.Named("http"), appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}

// newDispatcher builds the verification email channel: the HTTP mail
// provider and/or the NATS outbox, tried in that order. With neither
// configured requests still succeed and report the email as not sent.
func newDispatcher(cfg *config.Config, log *zap.Logger) (notify.Dispatcher, func()) {
	var chain notify.Chain
	closeFn := func() {}

	if cfg.Mail.ProviderURL != "" {
		chain = append(chain, notify.NewHTTPMailer(cfg.Mail.ProviderURL, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.Timeout))
	}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("portfolio-pilot"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn("nats disconnected", zap.Error(err))
				}
			}),
		)
		if err != nil {
			log.Warn("nats unavailable, outbox disabled", zap.Error(err))
		} else {
			chain = append(chain, notify.NewNATSOutbox(nc, cfg.NATS.Subject))
			closeFn = func() { _ = nc.Drain() }
		}
	}

	if len(chain) == 0 {
		log.Warn("no email channel configured; verification links must be shared manually")
		return notify.Disabled{}, closeFn
	}
	return chain, closeFn
}
