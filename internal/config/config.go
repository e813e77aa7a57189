package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingCredential = errors.New("missing required credential")

const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"

	DefaultAppID = "default-app-id"
)

type Config struct {
	DatabasePath string
	LogLevel     string
	Port         string

	SessionSecret string

	StoreBackend         string
	StoreAPIKey          string
	StoreProjectID       string
	StoreCredentialsFile string
	AppID                string

	TokenSecret            string
	TokenFallbackAnonymous bool

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	ReflectionStatusWindow time.Duration
	WorkspaceIdleTimeout   time.Duration
}

// Load reads the environment, merging an optional .env file first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	config := Config{
		DatabasePath:           envOrDefault("DATABASE_PATH", "./data/planner.db"),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		Port:                   envOrDefault("PORT", "8080"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		StoreBackend:           envOrDefault("STORE_BACKEND", BackendSQLite),
		StoreAPIKey:            os.Getenv("STORE_API_KEY"),
		StoreProjectID:         os.Getenv("STORE_PROJECT_ID"),
		StoreCredentialsFile:   os.Getenv("STORE_CREDENTIALS_FILE"),
		AppID:                  envOrDefault("STORE_APP_ID", DefaultAppID),
		TokenSecret:            os.Getenv("TOKEN_SECRET"),
		TokenFallbackAnonymous: os.Getenv("TOKEN_FALLBACK_ANONYMOUS") == "true",
		OIDCIssuer:             os.Getenv("OIDC_ISSUER"),
		OIDCClientID:           os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:       os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:        os.Getenv("OIDC_REDIRECT_URL"),
		ReflectionStatusWindow: time.Duration(envIntOrDefault("REFLECTION_STATUS_SECONDS", 3)) * time.Second,
		WorkspaceIdleTimeout:   time.Duration(envIntOrDefault("WORKSPACE_IDLE_MINUTES", 30)) * time.Minute,
	}

	if config.SessionSecret == "" {
		return config, fmt.Errorf("%w: SESSION_SECRET is required", ErrMissingCredential)
	}

	switch config.StoreBackend {
	case BackendSQLite:
	case BackendFirestore:
		if config.StoreAPIKey == "" {
			return config, fmt.Errorf("%w: STORE_API_KEY is required for the firestore backend", ErrMissingCredential)
		}
		if config.StoreProjectID == "" {
			return config, fmt.Errorf("%w: STORE_PROJECT_ID is required for the firestore backend", ErrMissingCredential)
		}
	default:
		return config, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}

	return config, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
