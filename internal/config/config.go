// Package config loads sourcing configuration from flags, environment variables, a .env file and an HCL options file.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Discovery DiscoveryConfig
	Commerce  CommerceConfig
	Auth      AuthConfig
	Search    SearchConfig
	Source    SourceConfig
	Server    ServerConfig

	// Options is the decoded options file. Never nil after LoadConfig.
	Options *Options
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"required,oneof=development staging production"`
}

// IsDevelopment reports whether the run is a local development run.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// DiscoveryConfig locates the catalog API.
type DiscoveryConfig struct {
	HostURL string `env:"DISCOVERY_HOST_URL" validate:"required,url"`
	APIPath string `env:"DISCOVERY_API_PATH"`
	// Local is set when pointing at a developer's local catalog, which may lack currency data.
	Local bool `env:"USE_LOCAL_DISCOVERY"`
}

// BaseURL returns the catalog API root with a trailing slash.
func (d DiscoveryConfig) BaseURL() string {
	base := strings.TrimRight(d.HostURL, "/") + "/" + strings.Trim(d.APIPath, "/")
	return strings.TrimRight(base, "/") + "/"
}

// CommerceConfig locates the basket pricing API.
type CommerceConfig struct {
	BasketCalculateURL string `env:"ECOMMERCE_BASKET_CALCULATE_API" validate:"required,url"`
	BasketURL          string `env:"ECOMMERCE_BASKET_URL" validate:"required,url"`
}

// AuthConfig holds client-credentials settings.
type AuthConfig struct {
	TokenURL     string `env:"OAUTH_URL" validate:"required_unless=Ignore true"`
	ClientID     string `env:"OAUTH_ID" validate:"required_unless=Ignore true"`
	ClientSecret string `env:"OAUTH_SECRET" validate:"required_unless=Ignore true"`
	// Ignore continues without a credential when the exchange fails.
	Ignore bool `env:"OAUTH_IGNORE"`
}

// SearchConfig selects and configures the search index backend.
type SearchConfig struct {
	Backend   string `env:"SEARCH_BACKEND" validate:"oneof=algolia local"`
	AppID     string `env:"ALGOLIA_APP_ID" validate:"required_if=Backend algolia"`
	AdminKey  string `env:"ALGOLIA_ADMIN_KEY" validate:"required_if=Backend algolia"`
	SearchKey string `env:"ALGOLIA_SEARCH_KEY" validate:"required_if=Backend algolia"`
	// Host overrides the Algolia host; empty derives it from AppID.
	Host      string `env:"ALGOLIA_HOST" validate:"omitempty,url"`
	IndexEN   string `env:"SEARCH_INDEX_EN" validate:"required"`
	IndexES   string `env:"SEARCH_INDEX_ES" validate:"required"`
	LocalPath string `env:"SEARCH_PATH" validate:"required_if=Backend local"`
}

// SourceConfig controls a sourcing run.
type SourceConfig struct {
	// Languages are extra language codes subjects are translated into.
	Languages []string `env:"LANGUAGES" validate:"dive,required"`
	// Limited fetches only the course and program UUIDs listed in the options file.
	Limited      bool   `env:"LIMIT_ONE_PAGE_PER_TYPE"`
	UseSnapshots bool   `env:"USE_SNAPSHOTTED_DATA"`
	SnapshotDir  string `env:"SNAPSHOT_DIR" validate:"required"`
	// CachePath is the Badger directory; empty keeps the cache in memory.
	CachePath   string        `env:"CACHE_PATH"`
	OptionsFile string        `env:"SOURCE_OPTIONS"`
	OutputPath  string        `env:"OUTPUT_PATH" validate:"required"`
	MaxAttempts int           `env:"FETCH_MAX_ATTEMPTS" validate:"gte=1"`
	MinWait     time.Duration `env:"FETCH_MIN_WAIT"`
	MaxWait     time.Duration `env:"FETCH_MAX_WAIT" validate:"gtefield=MinWait"`
	Timeout     time.Duration `env:"FETCH_TIMEOUT"`
}

// ServerConfig holds read API server configuration.
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" validate:"required"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT"`
	// AllowedOrigins are the CORS origins of the page builder. Empty allows any.
	AllowedOrigins []string `env:"SERVER_ALLOWED_ORIGINS" validate:"dive,url"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("catalog-source", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")
	optionsFile := fs.String("options", "", "Path to the HCL source options file (default: source.hcl)")
	limited := fs.String("limited", "", "Fetch only the limited UUID lists (default: false)")
	snapshots := fs.String("snapshots", "", "Replay and record snapshotted responses (default: false)")
	snapshotDir := fs.String("snapshot-dir", "", "Snapshot directory (default: .datasnapshots-disco)")
	cachePath := fs.String("cache-path", "", "Collection cache directory (default: in-memory)")
	output := fs.String("output", "", "Path of the JSON graph export (default: catalog.json)")
	languages := fs.String("languages", "", `Subject translation languages, JSON array or comma list (default: ["es"])`)
	port := fs.String("port", "", "Server port (default: 8080)")

	if err := fs.Parse(args); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "parse flags")
	}

	// Silently ignore a missing .env; variables already in the environment win.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
		},
		Discovery: DiscoveryConfig{
			HostURL: getConfigValue("", "DISCOVERY_HOST_URL", ""),
			APIPath: getConfigValue("", "DISCOVERY_API_PATH", "/api/v1/"),
			Local:   getBoolConfigValue("", "USE_LOCAL_DISCOVERY", false),
		},
		Commerce: CommerceConfig{
			BasketCalculateURL: getConfigValue("", "ECOMMERCE_BASKET_CALCULATE_API", ""),
			BasketURL:          getConfigValue("", "ECOMMERCE_BASKET_URL", ""),
		},
		Auth: AuthConfig{
			TokenURL:     getConfigValue("", "OAUTH_URL", ""),
			ClientID:     getConfigValue("", "OAUTH_ID", ""),
			ClientSecret: getConfigValue("", "OAUTH_SECRET", ""),
			Ignore:       getBoolConfigValue("", "OAUTH_IGNORE", false),
		},
		Search: SearchConfig{
			Backend:   getConfigValue("", "SEARCH_BACKEND", "algolia"),
			AppID:     getConfigValue("", "ALGOLIA_APP_ID", ""),
			AdminKey:  getConfigValue("", "ALGOLIA_ADMIN_KEY", ""),
			SearchKey: getConfigValue("", "ALGOLIA_SEARCH_KEY", ""),
			Host:      getConfigValue("", "ALGOLIA_HOST", ""),
			IndexEN:   getConfigValue("", "SEARCH_INDEX_EN", "product"),
			IndexES:   getConfigValue("", "SEARCH_INDEX_ES", "spanish_product"),
			LocalPath: getConfigValue("", "SEARCH_PATH", ""),
		},
		Source: SourceConfig{
			Limited:      getBoolConfigValue(*limited, "LIMIT_ONE_PAGE_PER_TYPE", false),
			UseSnapshots: getBoolConfigValue(*snapshots, "USE_SNAPSHOTTED_DATA", false),
			SnapshotDir:  getConfigValue(*snapshotDir, "SNAPSHOT_DIR", ".datasnapshots-disco"),
			CachePath:    getConfigValue(*cachePath, "CACHE_PATH", ""),
			OptionsFile:  getConfigValue(*optionsFile, "SOURCE_OPTIONS", "source.hcl"),
			OutputPath:   getConfigValue(*output, "OUTPUT_PATH", "catalog.json"),
			MaxAttempts:  getIntConfigValue("", "FETCH_MAX_ATTEMPTS", 20),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*port, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue("", "SERVER_ALLOWED_ORIGINS", "")),
		},
	}

	langs, err := parseLanguages(getConfigValue(*languages, "LANGUAGES", `["es"]`))
	if err != nil {
		return nil, err
	}
	cfg.Source.Languages = langs

	durations := []struct {
		target *time.Duration
		envKey string
		def    string
	}{
		{&cfg.Source.MinWait, "FETCH_MIN_WAIT", "2s"},
		{&cfg.Source.MaxWait, "FETCH_MAX_WAIT", "30s"},
		{&cfg.Source.Timeout, "FETCH_TIMEOUT", "60s"},
		{&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, domainerrors.Configf("invalid %s %q", d.envKey, raw).WithCause(err)
		}
		*d.target = parsed
	}

	for _, p := range []*string{&cfg.Source.SnapshotDir, &cfg.Source.CachePath, &cfg.Source.OutputPath, &cfg.Search.LocalPath} {
		if *p == "" {
			continue
		}
		if *p, err = expandPath(*p); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "expand path")
		}
	}

	cfg.Options, err = LoadOptions(cfg.Source.OptionsFile)
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
	v := validation.New()
	for _, section := range []any{c.App, c.Logger, c.Discovery, c.Commerce, c.Auth, c.Search, c.Source, c.Server} {
		if err := v.Validate(section); err != nil {
			return err
		}
	}
	if c.Source.Limited {
		if c.Options == nil || (len(c.Options.LimitedCourseUUIDs()) == 0 && len(c.Options.LimitedProgramUUIDs()) == 0) {
			return domainerrors.Configf("limited mode needs a limited block with course or program UUIDs in %s", c.Source.OptionsFile)
		}
	}
	return nil
}

// parseLanguages accepts either a JSON array (`["es","fr"]`) or a comma list (`es,fr`).
func parseLanguages(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var langs []string
		if err := json.Unmarshal([]byte(raw), &langs); err != nil {
			return nil, domainerrors.Configf("invalid LANGUAGES %q", raw).WithCause(err)
		}
		return langs, nil
	}
	return splitList(raw), nil
}

// splitList splits a comma list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}
	return filepath.Abs(path)
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
