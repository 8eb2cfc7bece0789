package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Discovery: DiscoveryConfig{HostURL: "https://discovery.example.com", APIPath: "/api/v1/"},
		Commerce: CommerceConfig{
			BasketCalculateURL: "https://ecommerce.example.com/api/v2/baskets/calculate/",
			BasketURL:          "https://ecommerce.example.com/basket/add/",
		},
		Auth: AuthConfig{Ignore: true},
		Search: SearchConfig{
			Backend:   "local",
			IndexEN:   "product",
			IndexES:   "spanish_product",
			LocalPath: "/tmp/search",
		},
		Source: SourceConfig{
			Languages:   []string{"es"},
			SnapshotDir: ".datasnapshots-disco",
			OutputPath:  "catalog.json",
			MaxAttempts: 20,
			MinWait:     2 * time.Second,
			MaxWait:     30 * time.Second,
		},
		Server:  ServerConfig{Port: "8080"},
		Options: &Options{},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "test" }, "ENV"},
		{"bad log level", func(c *Config) { c.Logger.Level = "trace" }, "LOG_LEVEL"},
		{"missing discovery host", func(c *Config) { c.Discovery.HostURL = "" }, "DISCOVERY_HOST_URL"},
		{"oauth required when not ignored", func(c *Config) { c.Auth.Ignore = false }, "OAUTH_ID"},
		{"algolia keys required", func(c *Config) { c.Search.Backend = "algolia" }, "ALGOLIA_APP_ID"},
		{"zero attempts", func(c *Config) { c.Source.MaxAttempts = 0 }, "FETCH_MAX_ATTEMPTS"},
		{"max wait below min", func(c *Config) { c.Source.MaxWait = time.Second }, "FETCH_MAX_WAIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_LimitedNeedsUUIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Limited = true

	err := cfg.Validate()
	assert.ErrorIs(t, err, domainerrors.ErrConfig)

	cfg.Options = &Options{Limited: &LimitedOptions{CourseUUIDs: []string{"c1"}}}
	assert.NoError(t, cfg.Validate())
}

func TestDiscoveryConfig_BaseURL(t *testing.T) {
	tests := []struct {
		host, path, want string
	}{
		{"https://d.example.com", "/api/v1/", "https://d.example.com/api/v1/"},
		{"https://d.example.com/", "api/v1", "https://d.example.com/api/v1/"},
		{"https://d.example.com", "", "https://d.example.com/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DiscoveryConfig{HostURL: tt.host, APIPath: tt.path}.BaseURL())
	}
}

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`["es"]`, []string{"es"}},
		{`["es","fr"]`, []string{"es", "fr"}},
		{"es, fr", []string{"es", "fr"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseLanguages(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLanguages(`["es"`)
	assert.ErrorIs(t, err, domainerrors.ErrConfig)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"DISCOVERY_HOST_URL=https://from-dotenv.example.com\nLOG_LEVEL=debug\nSERVER_PORT=9000\n"), 0o600))

	// godotenv exports .env values into the process.
	t.Cleanup(func() {
		_ = os.Unsetenv("DISCOVERY_HOST_URL")
		_ = os.Unsetenv("SERVER_PORT")
	})

	t.Setenv("ECOMMERCE_BASKET_CALCULATE_API", "https://ecommerce.example.com/calculate/")
	t.Setenv("ECOMMERCE_BASKET_URL", "https://ecommerce.example.com/basket/")
	t.Setenv("OAUTH_IGNORE", "true")
	t.Setenv("SEARCH_BACKEND", "local")
	t.Setenv("SEARCH_PATH", filepath.Join(dir, "search"))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig([]string{
		"-env-file", envFile,
		"-port", "7000",
		"-options", filepath.Join(dir, "missing.hcl"),
		"-languages", "es,fr",
	})
	require.NoError(t, err)

	// .env fills what the environment does not set.
	assert.Equal(t, "https://from-dotenv.example.com", cfg.Discovery.HostURL)
	// Environment beats .env.
	assert.Equal(t, "warn", cfg.Logger.Level)
	// Flag beats .env.
	assert.Equal(t, "7000", cfg.Server.Port)

	assert.Equal(t, []string{"es", "fr"}, cfg.Source.Languages)
	assert.Equal(t, 20, cfg.Source.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Source.MinWait)
	assert.Equal(t, 30*time.Second, cfg.Source.MaxWait)
	assert.True(t, filepath.IsAbs(cfg.Source.SnapshotDir))
	assert.NotNil(t, cfg.Options)
}
