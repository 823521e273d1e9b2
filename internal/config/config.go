// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/admin.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Collection names
// --------------------------------------------------------------------------

const (
	EmailCollection = "email_notifications"
	PushCollection  = "push_notifications"
)

// DefaultLanguage is the fallback for template resolution and for requests
// that omit a language.
const DefaultLanguage = "en"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Mongo
	MongoURL      string
	MongoDatabase string

	// Shared secret for the trigger interface and the push backend.
	APISecretKey string

	// SendGrid
	SendGridAPIKey string

	// Push delivery / aggregation backend
	BackendURL     string
	BackendTimeout time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Scheduling
	Languages    []string
	DueHorizon   time.Duration // lookahead for due selection
	EmailAdvance time.Duration // fire-time advance after an email dispatch attempt
	PushAdvance  time.Duration // fire-time advance after a push dispatch attempt
	TickInterval time.Duration // internal tick scheduler; 0 disables
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	mongoURL := envOr("MONGO_URL", "")
	if mongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL must be set")
	}
	secret := envOr("API_SECRET_KEY", "")
	if secret == "" {
		return nil, fmt.Errorf("API_SECRET_KEY must be set")
	}

	return &Config{
		MongoURL:      mongoURL,
		MongoDatabase: envOr("MONGO_DATABASE", "memobox"),

		APISecretKey:   secret,
		SendGridAPIKey: envOr("SEND_GRID_API_KEY", ""),

		BackendURL:     envOr("BACKEND_URL", "https://memobox.tech/"),
		BackendTimeout: time.Duration(envInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		Languages:    envList("NOTIFICATION_LANGUAGES", []string{"en", "ru"}),
		DueHorizon:   time.Duration(envInt("DUE_HORIZON_MINUTES", 2)) * time.Minute,
		EmailAdvance: time.Duration(envInt("EMAIL_ADVANCE_HOURS", 4)) * time.Hour,
		PushAdvance:  time.Duration(envInt("PUSH_ADVANCE_HOURS", 2)) * time.Hour,
		TickInterval: time.Duration(envInt("TICK_INTERVAL_SECONDS", 0)) * time.Second,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// SendGrid sender/template bundles
// --------------------------------------------------------------------------

// SendGridData is a per-language, per-type sender/template bundle stored as
// JSON in SEND_GRID_DATA_<LANGUAGE>_<TYPE> environment variables.
type SendGridData struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	TemplateID string `json:"templateId"`
	Subject    string `json:"subject"`
}

// SendGridData resolves the sender/template bundle for a language and email
// type, falling back to the "en" bundle when the language-specific one is
// absent. A missing "en" bundle is a misconfiguration, not a runtime
// condition to mask.
func (c *Config) SendGridData(language, emailType string) (*SendGridData, error) {
	raw := os.Getenv(sendGridKey(language, emailType))
	if raw == "" {
		raw = os.Getenv(sendGridKey(DefaultLanguage, emailType))
	}
	if raw == "" {
		return nil, fmt.Errorf("no SendGrid data configured for language %q type %q (no en fallback)", language, emailType)
	}
	var data SendGridData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse SendGrid data for %q/%q: %w", language, emailType, err)
	}
	return &data, nil
}

func sendGridKey(language, emailType string) string {
	return "SEND_GRID_DATA_" + strings.ToUpper(language) + "_" + emailType
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
