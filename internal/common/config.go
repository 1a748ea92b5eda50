package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Inbox    InboxConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr       string
	StorageDir string // where uploaded invoice PDFs are kept for later retrieval
}

// LLMConfig holds language-model connection defaults. The API key is always
// supplied per request; endpoint and deployment may be overridden per request.
type LLMConfig struct {
	Endpoint   string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// InboxConfig holds directory-watcher configuration
type InboxConfig struct {
	WatchDir     string
	ProcessedDir string
	FailedDir    string
	InitialScan  bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Server: ServerConfig{
			Addr:       getEnv("HTTP_ADDR", ":8080"),
			StorageDir: getEnv("STORAGE_DIR", "./processed"),
		},
		LLM: LLMConfig{
			Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			Deployment: getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o-mini"),
			APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			Timeout:    getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Inbox: InboxConfig{
			WatchDir:     getEnv("INBOX_DIR", "./invoice_inbox"),
			ProcessedDir: getEnv("PROCESSED_DIR", "./processed"),
			FailedDir:    getEnv("FAILED_DIR", "./failed"),
			InitialScan:  getEnvAsBool("INBOX_INITIAL_SCAN", false),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
