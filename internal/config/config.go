// Package config provides application configuration from command-line flags,
// environment variables, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	ISBNdb   ISBNdbConfig
	Gemini   GeminiConfig
	Auth     AuthConfig
	Quota    QuotaConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration // default: 15s
	WriteTimeout   time.Duration // default: 60s, generation calls are slow
	IdleTimeout    time.Duration // default: 120s
	AllowedOrigins []string      // CORS origins for the web frontend
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string
}

// ISBNdbConfig holds bibliographic API configuration.
type ISBNdbConfig struct {
	APIKey  string
	BaseURL string // override for testing; empty means the public API
}

// GeminiConfig holds language-model API configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// AuthConfig holds identity-provider token verification configuration.
// The server never issues tokens; it only verifies what the provider signed.
type AuthConfig struct {
	JWTSecret string
}

// QuotaConfig holds free-tier quota configuration.
type QuotaConfig struct {
	MaxRecommendations int
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := flag.String("db-path", "", "Path to the SQLite database file")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 120s)")
	allowedOrigins := flag.String("allowed-origins", "", "Comma-separated CORS origins")
	maxRecs := flag.String("max-recommendations", "", "Free-tier recommendation ceiling (default: 5)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env if present; real environment variables win.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DATABASE_PATH", "nextread.db"),
		},
		ISBNdb: ISBNdbConfig{
			APIKey:  getConfigValue("", "ISBNDB_API_KEY", ""),
			BaseURL: getConfigValue("", "ISBNDB_BASE_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getConfigValue("", "GEMINI_API_KEY", ""),
			Model:  getConfigValue("", "GEMINI_MODEL", "gemini-1.5-flash-latest"),
		},
		Auth: AuthConfig{
			JWTSecret: getConfigValue("", "IDENTITY_JWT_SECRET", ""),
		},
		Quota: QuotaConfig{
			MaxRecommendations: getIntConfigValue(*maxRecs, "MAX_RECOMMENDATIONS", 5),
		},
	}

	originsStr := getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(originsStr, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
		}
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty")
	}

	if c.ISBNdb.APIKey == "" {
		return errors.New("ISBNDB_API_KEY is required")
	}
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("IDENTITY_JWT_SECRET is required")
	}

	if c.Quota.MaxRecommendations < 1 {
		return fmt.Errorf("invalid recommendation ceiling: %d", c.Quota.MaxRecommendations)
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}
