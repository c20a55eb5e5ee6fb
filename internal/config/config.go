// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissing is wrapped by every validation error for a required key.
var ErrMissing = errors.New("required configuration missing")

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the database and backup staging (always absolute)
	DatabasePath string
	BaseURL      string // Public URL used in emails and redirects
	LogLevel     string
	Port         int
	DevMode      bool

	FinnhubBaseURL string
	FinnhubAPIKey  string

	GeminiAPIKey string
	GeminiModel  string

	SMTP SMTPConfig

	EmailUnsubSecret string
	SessionSecret    string
	// FunctionsSigningKey signs /api/functions requests; the endpoint rejects everything when empty
	FunctionsSigningKey string

	DigestCron string
	Backup     *BackupConfig
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

// BackupConfig holds S3-compatible backup settings (backups are disabled when Bucket is empty)
type BackupConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	Keep            int
}

// Enabled reports whether off-site backups are configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadUnvalidated reads configuration without checking required keys.
// Diagnostic commands use it so they work before the service is fully configured.
func LoadUnvalidated() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	smtpUser := getEnv("NODEMAILER_EMAIL", "")

	return &Config{
		DataDir:      absDataDir,
		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(absDataDir, "signalist.db")),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("PORT", 3000),
		DevMode:      getEnvAsBool("DEV_MODE", false),

		FinnhubBaseURL: strings.TrimRight(getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"), "/"),
		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),

		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  smtpUser,
			Password:  getEnv("NODEMAILER_PASSWORD", ""),
			FromEmail: getEnv("MAIL_FROM", smtpUser),
		},

		EmailUnsubSecret: getEnv("EMAIL_UNSUB_SECRET", ""),
		SessionSecret:    getEnv("SESSION_SECRET", ""),

		FunctionsSigningKey: getEnv("FUNCTIONS_SIGNING_KEY", ""),

		// Seconds field first: noon every day
		DigestCron: getEnv("DIGEST_CRON", "0 0 12 * * *"),
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_CRON", "0 30 3 * * *"),
			Keep:            getEnvAsInt("BACKUP_KEEP", 7),
		},
	}, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"FINNHUB_API_KEY", c.FinnhubAPIKey},
		{"EMAIL_UNSUB_SECRET", c.EmailUnsubSecret},
		{"SESSION_SECRET", c.SessionSecret},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s must be set", ErrMissing, r.key)
		}
	}

	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("%w: BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY must be set when BACKUP_BUCKET is set", ErrMissing)
	}

	return nil
}

// MailEnabled reports whether SMTP credentials are configured
func (c *Config) MailEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
