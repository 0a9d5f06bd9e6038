package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Role selects which binary's settings Validate checks.
type Role string

const (
	RoleWeb     Role = "web"
	RoleAPI     Role = "api"
	RoleJournal Role = "journal"
)

type Config struct {
	// Web view
	Port            string
	BackendURL      string
	BackendTimeout  time.Duration
	DisplayTimezone string
	SubmitGuard     bool
	SessionTTL      time.Duration
	SessionMax      int

	// Reference API
	APIPort            string
	DataBackend        string
	SQLiteDBPath       string
	CORSAllowedOrigins string

	// Shared HTTP
	RateLimitPerMinute int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets journal
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		BackendURL:      NormalizeBackendURL(getEnv("BACKEND_URL", "")),
		BackendTimeout:  getEnvDuration("BACKEND_TIMEOUT", 0),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Europe/Paris"),
		SubmitGuard:     getEnvBool("SUBMIT_GUARD", true),
		SessionTTL:      getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionMax:      getEnvInt("SESSION_MAX", 1000),

		APIPort:            getEnv("API_PORT", "8001"),
		DataBackend:        getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/paie.db"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "paie"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_journal"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Journal"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// NormalizeBackendURL trims whitespace, trailing slashes and a trailing /api
// so that the client can always append "/api/...".
func NormalizeBackendURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	s = strings.TrimSuffix(s, "/api")
	return strings.TrimRight(s, "/")
}

// Location resolves DisplayTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.DisplayTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Validate validates the configuration for the given role and returns an
// error listing every problem found.
func (c *Config) Validate(role Role) error {
	var errors []string

	if c.LogFormat != "" && !slices.Contains([]string{"text", "json", "tint"}, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json tint]", c.LogFormat))
	}

	switch role {
	case RoleWeb:
		errors = append(errors, validatePort("port", c.Port)...)
		if c.BackendURL == "" {
			errors = append(errors, "BACKEND_URL is required")
		} else if u, err := url.Parse(c.BackendURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid backend URL '%s': %v", c.BackendURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid backend URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.BackendTimeout < 0 {
			errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must not be negative", c.BackendTimeout))
		}
		if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.DisplayTimezone, err))
		}
		if c.SessionTTL < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
		}
		if c.SessionMax < 1 {
			errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
		}
		errors = append(errors, c.validateRateLimit()...)

	case RoleAPI:
		errors = append(errors, validatePort("API port", c.APIPort)...)
		validBackends := []string{"memory", "sqlite"}
		if !slices.Contains(validBackends, c.DataBackend) {
			errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
		}
		if c.DataBackend == "sqlite" {
			if c.SQLiteDBPath == "" {
				errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
			} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
		errors = append(errors, c.validateRateLimit()...)
		errors = append(errors, c.validateAMQP(false)...)

	case RoleJournal:
		errors = append(errors, c.validateAMQP(true)...)
		if c.GoogleSpreadsheetID != "" {
			if c.GoogleSheetName == "" {
				errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
			}
			if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
				errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
			}
			if c.GoogleServiceAccountFile != "" {
				if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
					errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
				}
			}
		}

	default:
		errors = append(errors, fmt.Sprintf("unknown role '%s'", role))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func (c *Config) validateRateLimit() []string {
	if c.RateLimitPerMinute < 1 {
		return []string{fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute)}
	}
	return nil
}

func (c *Config) validateAMQP(required bool) []string {
	var errors []string
	if c.AMQPURL == "" {
		if required {
			errors = append(errors, "AMQP_URL is required")
		}
		return errors
	}
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
