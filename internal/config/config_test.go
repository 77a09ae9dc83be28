package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/some/path", Backend: BackendBadger},
		Auth: AuthConfig{
			TokenFormat:    TokenJWT,
			LoginPassword:  "secret",
			LoginRateLimit: 1,
			LoginRateBurst: 10,
		},
		GraphQL: GraphQLConfig{ComplexityLimit: 1000},
		Events:  EventsConfig{SubscriberBuffer: 64},
	}
}

// loadArgs runs the loader against a fresh flag set and a .env file that does not exist.
func loadArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	args = append([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	return load(fs, args)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_ZeroRateDisablesLimiter(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.LoginRateLimit = 0
	cfg.Auth.LoginRateBurst = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"unknown token format", func(c *Config) { c.Auth.TokenFormat = "opaque" }},
		{"empty login password", func(c *Config) { c.Auth.LoginPassword = "" }},
		{"negative rate limit", func(c *Config) { c.Auth.LoginRateLimit = -1 }},
		{"rate limit without burst", func(c *Config) { c.Auth.LoginRateBurst = 0 }},
		{"zero complexity", func(c *Config) { c.GraphQL.ComplexityLimit = 0 }},
		{"zero subscriber buffer", func(c *Config) { c.Events.SubscriberBuffer = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadArgs(t)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, TokenJWT, cfg.Auth.TokenFormat)
	assert.Equal(t, "secret", cfg.Auth.LoginPassword)
	assert.Zero(t, cfg.Auth.LoginRateLimit)
	assert.Empty(t, cfg.Auth.Secret)
	assert.True(t, cfg.GraphQL.Playground)
	assert.True(t, cfg.Search.Enabled)
	assert.True(t, filepath.IsAbs(cfg.Storage.DataPath))
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("STORE_BACKEND", "sqlite")
	dataDir := t.TempDir()

	cfg, err := loadArgs(t, "-port", "9100", "-data-path", dataDir)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, dataDir, cfg.Storage.DataPath)
}

func TestLoad_ProductionDisablesPlayground(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATA_PATH", t.TempDir())

	cfg, err := loadArgs(t)
	require.NoError(t, err)
	assert.False(t, cfg.GraphQL.Playground)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	_, err := loadArgs(t, "-read-timeout", "soon")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nLIBRARY_TEST_A=one\nLIBRARY_TEST_B=\"two\"\n\nLIBRARY_TEST_C='three'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("LIBRARY_TEST_C", "preset")
	t.Cleanup(func() {
		os.Unsetenv("LIBRARY_TEST_A") //nolint:errcheck // Test cleanup
		os.Unsetenv("LIBRARY_TEST_B") //nolint:errcheck // Test cleanup
	})

	require.NoError(t, loadEnvFile(path))

	assert.Equal(t, "one", os.Getenv("LIBRARY_TEST_A"))
	assert.Equal(t, "two", os.Getenv("LIBRARY_TEST_B"))
	assert.Equal(t, "preset", os.Getenv("LIBRARY_TEST_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}
