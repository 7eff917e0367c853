// Package config provides application configuration loaded from environment
// variables, optionally layered over a YAML file named by CONFIG_FILE.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	App      AppConfig      `yaml:"app"`
	Identity IdentityConfig `yaml:"identity"`
	Mail     MailConfig     `yaml:"mail"`
	NATS     NATSConfig     `yaml:"nats"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout"`  // seconds
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite";
// a non-empty DSNOverride is used verbatim.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	DSNOverride string `yaml:"dsn"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"name"`
	SSLMode     string `yaml:"sslmode"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev             bool          `yaml:"dev"`
	Migrations      bool          `yaml:"migrations"`
	PublicURL       string        `yaml:"public_url"`
	AdminEmails     []string      `yaml:"admin_emails"`
	VerificationTTL time.Duration `yaml:"verification_ttl"`
}

// IdentityConfig describes the external identity provider.
type IdentityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	BaseURL   string `yaml:"base_url"`
	AnonKey   string `yaml:"anon_key"`
}

// MailConfig configures the HTTP mail provider. Empty ProviderURL disables it.
type MailConfig struct {
	ProviderURL string        `yaml:"provider_url"`
	APIKey      string        `yaml:"api_key"`
	From        string        `yaml:"from"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NATSConfig configures the outbox publisher. Empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RedisConfig configures the shared role cache. Empty Addr disables it.
type RedisConfig struct {
	Addr            string        `yaml:"addr"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`
}

// LogConfig holds logger settings. File enables a rotated file sink.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.DSNOverride != "" {
		return d.DSNOverride
	}
	if d.Driver == "sqlite" {
		return d.DBName + ".db"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Defaults returns the configuration used for local development.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "portfolio",
			DBName:  "portfolio",
			SSLMode: "disable",
		},
		App: AppConfig{
			Dev:             true,
			PublicURL:       "http://localhost:3000",
			VerificationTTL: 30 * 24 * time.Hour,
		},
		Mail:  MailConfig{Timeout: 10 * time.Second},
		NATS:  NATSConfig{Subject: "portfolio.verification.email"},
		Redis: RedisConfig{ProfileCacheTTL: 5 * time.Minute},
		Log:   LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	cfg.App.PublicURL = strings.TrimRight(cfg.App.PublicURL, "/")
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSNOverride = getEnv("DATABASE_URL", c.Database.DSNOverride)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.App.Dev = getEnvBool("DEV", c.App.Dev)
	c.App.Migrations = getEnvBool("MIGRATIONS", c.App.Migrations)
	c.App.PublicURL = getEnv("PUBLIC_URL", c.App.PublicURL)
	c.App.AdminEmails = getEnvList("ADMIN_EMAILS", c.App.AdminEmails)
	c.App.VerificationTTL = getEnvDuration("VERIFICATION_TTL", c.App.VerificationTTL)

	c.Identity.JWTSecret = getEnv("IDP_JWT_SECRET", c.Identity.JWTSecret)
	c.Identity.Issuer = getEnv("IDP_ISSUER", c.Identity.Issuer)
	c.Identity.Audience = getEnv("IDP_AUDIENCE", c.Identity.Audience)
	c.Identity.BaseURL = getEnv("IDP_BASE_URL", c.Identity.BaseURL)
	c.Identity.AnonKey = getEnv("IDP_ANON_KEY", c.Identity.AnonKey)

	c.Mail.ProviderURL = getEnv("MAIL_PROVIDER_URL", c.Mail.ProviderURL)
	c.Mail.APIKey = getEnv("MAIL_API_KEY", c.Mail.APIKey)
	c.Mail.From = getEnv("MAIL_FROM", c.Mail.From)
	c.Mail.Timeout = getEnvDuration("MAIL_TIMEOUT", c.Mail.Timeout)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.ProfileCacheTTL = getEnvDuration("PROFILE_CACHE_TTL", c.Redis.ProfileCacheTTL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses Go duration syntax ("720h", "15s").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
