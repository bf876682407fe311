// Package config provides unified configuration loading for the invoice extractor.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendAirtable = "airtable"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the invoice extractor.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Store         StoreConfig         `yaml:"store"`
	Fetch         FetchConfig         `yaml:"fetch"`
	PDF           PDFConfig           `yaml:"pdf"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadMB      int64         `yaml:"max_upload_mb"`
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // airtable or postgres
	Airtable AirtableConfig `yaml:"airtable"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// AirtableConfig holds Airtable settings.
type AirtableConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseID    string `yaml:"base_id"`
	TableName string `yaml:"table_name"`
}

// PostgresConfig holds Postgres settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// FetchConfig bounds remote document downloads.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PDFConfig controls rasterization.
type PDFConfig struct {
	Enabled bool    `yaml:"enabled"`
	DPI     float64 `yaml:"dpi"`
	Quality int     `yaml:"quality"`
}

// PipelineConfig holds execution settings.
type PipelineConfig struct {
	TempDir         string `yaml:"temp_dir"`
	MaxDetachedRuns int64  `yaml:"max_detached_runs"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 60 * time.Second,
			MaxUploadMB:      20,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o",
			MaxTokens: 1000,
		},
		Store: StoreConfig{
			Backend: BackendAirtable,
			Airtable: AirtableConfig{
				TableName: "Invoices",
			},
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
		},
		PDF: PDFConfig{
			Enabled: true,
			DPI:     144,
			Quality: 85,
		},
		Pipeline: PipelineConfig{
			MaxDetachedRuns: 8,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "invoice-extractor",
		},
	}
}

// Validate checks the configuration for errors. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}

	switch c.Store.Backend {
	case BackendAirtable:
		if c.Store.Airtable.APIKey == "" {
			errs = append(errs, errors.New("AIRTABLE_API_KEY is required"))
		}
		if c.Store.Airtable.BaseID == "" {
			errs = append(errs, errors.New("AIRTABLE_BASE_ID is required"))
		}
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store backend: %q", c.Store.Backend))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Pipeline.MaxDetachedRuns < 1 {
		errs = append(errs, fmt.Errorf("max_detached_runs must be at least 1, got %d", c.Pipeline.MaxDetachedRuns))
	}

	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be at least 1, got %d", c.Server.MaxUploadMB))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// StoreConfigured reports whether the selected store has its credentials.
func (c *Config) StoreConfigured() bool {
	switch c.Store.Backend {
	case BackendAirtable:
		return c.Store.Airtable.APIKey != "" && c.Store.Airtable.BaseID != ""
	case BackendPostgres:
		return c.Store.Postgres.DSN != ""
	default:
		return false
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("SERVER_HOST", &cfg.Server.Host)
	setString("OPENAI_API_KEY", &cfg.LLM.APIKey)
	setString("OPENAI_BASE_URL", &cfg.LLM.BaseURL)
	setString("LLM_MODEL", &cfg.LLM.Model)
	setString("AIRTABLE_API_KEY", &cfg.Store.Airtable.APIKey)
	setString("AIRTABLE_BASE_ID", &cfg.Store.Airtable.BaseID)
	setString("AIRTABLE_TABLE_NAME", &cfg.Store.Airtable.TableName)
	setString("DATABASE_URL", &cfg.Store.Postgres.DSN)
	setString("LOG_LEVEL", &cfg.Observability.LogLevel)
	setString("LOG_FORMAT", &cfg.Observability.LogFormat)
	setString("TEMP_DIR", &cfg.Pipeline.TempDir)

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FETCH_TIMEOUT: %w", err))
		} else {
			cfg.Fetch.Timeout = d
		}
	}

	if v := os.Getenv("MAX_DETACHED_RUNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_DETACHED_RUNS: %w", err))
		} else {
			cfg.Pipeline.MaxDetachedRuns = n
		}
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB: %w", err))
		} else {
			cfg.Server.MaxUploadMB = n
		}
	}

	if v := os.Getenv("PDF_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PDF_ENABLED: %w", err))
		} else {
			cfg.PDF.Enabled = b
		}
	}

	return errors.Join(errs...)
}
