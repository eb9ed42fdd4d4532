// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first (if present) so local
// development does not need exported variables. Real environment variables
// always win over .env values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers selectable with STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	// Server
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
	FrontendURL string
	// BehindProxy trusts X-Forwarded-For/X-Real-IP for the client address.
	// Only set it when a reverse proxy overwrites those headers.
	BehindProxy bool

	// Storage
	StoreDriver   string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret                string
	JWTTTL                   time.Duration
	BcryptCost               int
	RequireEmailVerification bool

	// GitHub OAuth (optional; routes are only mounted when both are set)
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Observability
	SentryDSN      string
	MetricsEnabled bool
}

// IsProduction switches the logger to JSON and marks cookies Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads .env (if any) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,https://clothconnect.onrender.com")),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DBPath:        getEnv("DB_PATH", "data/clothconnect.db"),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "clothconnect"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	var err error
	if cfg.Port, err = parseInt("PORT", "5000"); err != nil {
		errs = append(errs, err)
	}
	if cfg.JWTTTL, err = parseDuration("JWT_TTL", "720h"); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = parseInt("BCRYPT_COST", "12"); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequireEmailVerification, err = parseBool("REQUIRE_EMAIL_VERIFICATION", "true"); err != nil {
		errs = append(errs, err)
	}
	if cfg.MetricsEnabled, err = parseBool("METRICS_ENABLED", "true"); err != nil {
		errs = append(errs, err)
	}
	if cfg.BehindProxy, err = parseBool("BEHIND_PROXY", "false"); err != nil {
		errs = append(errs, err)
	}
	cfg.GitHubCallbackURL = getEnv("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/api/users/auth/github/callback", cfg.Port))

	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	switch cfg.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d is outside 4..31", cfg.BcryptCost))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: %q is not a positive duration", key, raw)
	}
	return d, nil
}

func parseBool(key, fallback string) (bool, error) {
	raw := getEnv(key, fallback)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
