// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Token formats.
const (
	TokenJWT    = "jwt"
	TokenPASETO = "paseto"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Auth    AuthConfig
	GraphQL GraphQLConfig
	Events  EventsConfig
	Search  SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	DataPath string // Base directory for the database and key material
	Backend  string // badger (default) or sqlite
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name           string
	Port           string        // Server port (default: 4000)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 0, subscriptions are long-lived)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins (default: *)
	AdvertiseMDNS  bool          // Advertise via avahi (default: false)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Secret signs credentials. Empty means a key file under DataPath is used.
	Secret []byte
	// TokenFormat is jwt (default) or paseto.
	TokenFormat string
	// LoginPassword is the single password every user signs in with.
	LoginPassword string
	// Failed login attempts allowed per second per client, and burst.
	// A zero rate disables the limiter.
	LoginRateLimit float64
	LoginRateBurst int
}

// GraphQLConfig holds GraphQL endpoint configuration.
type GraphQLConfig struct {
	ComplexityLimit int
	Playground      bool
}

// EventsConfig holds event bus configuration.
type EventsConfig struct {
	// RedisAddr enables relaying bus events between instances when set.
	RedisAddr string
	// SubscriberBuffer is the per-subscriber event buffer size.
	SubscriberBuffer int
}

// SearchConfig holds search index configuration.
type SearchConfig struct {
	Enabled bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the catalog database")
	backend := fs.String("store", "", "Store backend (badger, sqlite)")
	serverName := fs.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 4000)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("cors-origins", "", "Comma-separated CORS origins (default: *)")
	advertiseMDNS := fs.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: false)")

	// Auth flags
	secret := fs.String("secret", "", "Credential signing secret")
	tokenFormat := fs.String("token-format", "", "Credential format (jwt, paseto)")
	loginPassword := fs.String("login-password", "", "Shared login password")

	// GraphQL and events flags
	complexityLimit := fs.String("complexity-limit", "", "GraphQL query complexity limit (default: 1000)")
	playground := fs.String("playground", "", "Serve the GraphQL playground (default: true outside production)")
	redisAddr := fs.String("redis-addr", "", "Redis address for the event relay")
	searchEnabled := fs.String("search", "", "Enable the book search index (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	environment := getConfigValue(*env, "ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Environment: environment,
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend:  strings.ToLower(getConfigValue(*backend, "STORE_BACKEND", BackendBadger)),
		},
		Server: ServerConfig{
			Name:           getConfigValue(*serverName, "SERVER_NAME", "Library Catalog"),
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "4000"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "CORS_ALLOWED_ORIGINS", "*")),
			AdvertiseMDNS:  getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", false),
		},
		Auth: AuthConfig{
			Secret:         []byte(getConfigValue(*secret, "JWT_SECRET", "")),
			TokenFormat:    strings.ToLower(getConfigValue(*tokenFormat, "TOKEN_FORMAT", TokenJWT)),
			LoginPassword:  getConfigValue(*loginPassword, "LOGIN_PASSWORD", "secret"),
			LoginRateLimit: getFloatConfigValue("", "LOGIN_RATE_LIMIT", 0),
			LoginRateBurst: getIntConfigValue("", "LOGIN_RATE_BURST", 10),
		},
		GraphQL: GraphQLConfig{
			ComplexityLimit: getIntConfigValue(*complexityLimit, "GRAPHQL_COMPLEXITY_LIMIT", 1000),
			Playground:      getBoolConfigValue(*playground, "GRAPHQL_PLAYGROUND", environment != "production"),
		},
		Events: EventsConfig{
			RedisAddr:        getConfigValue(*redisAddr, "REDIS_ADDR", ""),
			SubscriberBuffer: getIntConfigValue("", "EVENT_SUBSCRIBER_BUFFER", 64),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDuration(*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDuration(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

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

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("invalid store backend: %s (must be badger or sqlite)", c.Storage.Backend)
	}

	switch c.Auth.TokenFormat {
	case TokenJWT, TokenPASETO:
	default:
		return fmt.Errorf("invalid token format: %s (must be jwt or paseto)", c.Auth.TokenFormat)
	}

	if c.Auth.LoginPassword == "" {
		return errors.New("LOGIN_PASSWORD cannot be empty")
	}

	if c.Auth.LoginRateLimit < 0 {
		return errors.New("LOGIN_RATE_LIMIT cannot be negative")
	}
	if c.Auth.LoginRateLimit > 0 && c.Auth.LoginRateBurst <= 0 {
		return errors.New("LOGIN_RATE_BURST must be positive when login rate limiting is enabled")
	}

	if c.GraphQL.ComplexityLimit <= 0 {
		return errors.New("GRAPHQL_COMPLEXITY_LIMIT must be positive")
	}

	if c.Events.SubscriberBuffer <= 0 {
		return errors.New("EVENT_SUBSCRIBER_BUFFER must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/LibraryCatalog/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "LibraryCatalog", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
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

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

func parseDuration(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars already set take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
