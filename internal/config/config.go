// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/sticktock/mirror/internal/database"

	_ "github.com/lib/pq"
)

type AppConfig struct {
	AppEnv  string
	Version string

	DatabaseURL string

	PublicDir     string
	ListenAddr    string
	SignerURL     string
	SessionSecret string
	FFmpegPath    string
	SentryDSN     string

	MaxBackgroundTasks  int
	UpstreamRPS         int
	BrowserFallback     bool
	BrowserTimeout      time.Duration
	DownloadTimeout     time.Duration
	SecureSessionCookie bool
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set win.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	maxTasks, err := getEnvInt("MAX_BACKGROUND_TASKS", 8)
	if err != nil {
		return nil, err
	}
	rps, err := getEnvInt("UPSTREAM_REQUESTS_PER_SECOND", 0)
	if err != nil {
		return nil, err
	}
	browser, err := strconv.ParseBool(getEnv("BROWSER_FALLBACK", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_FALLBACK: %w", err)
	}

	cfg := &AppConfig{
		AppEnv:             getEnv("APP_ENV", "development"),
		Version:            getEnv("VERSION", "dev"),
		DatabaseURL:        databaseURL(),
		PublicDir:          getEnv("PUBLIC_DIR", "./public"),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		SignerURL:          getEnv("SIGNER_URL", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		MaxBackgroundTasks: maxTasks,
		UpstreamRPS:        rps,
		BrowserFallback:    browser,
		BrowserTimeout:     30 * time.Second,
		DownloadTimeout:    5 * time.Minute,
	}
	cfg.SecureSessionCookie = cfg.AppEnv == "production"

	if cfg.SignerURL == "" {
		log.Println("Warning: SIGNER_URL is not set. Upstream API calls will fail.")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.SessionSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		log.Println("Warning: SESSION_SECRET is not set, using an insecure development secret")
		cfg.SessionSecret = "development-only-session-secret"
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_* variables.
func databaseURL() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", ""), getEnv("POSTGRES_PASSWORD", "")),
		Host:     getEnv("POSTGRES_HOST", "db") + ":" + getEnv("POSTGRES_PORT", "5432"),
		Path:     "/" + getEnv("POSTGRES_DB", ""),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func LoadDatabase(cfg *AppConfig) (*database.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("database is not configured")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to the DB: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return database.NewStore(db), db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(database.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get DB version: %w", err)
	}
	log.Printf("Migrations applied successfully. Current DB version: %d", version)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}
