package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/schoolhealth/schoolhealth/internal/watch"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInputFile         = "slo_schools_obesity.txt"
	DefaultLogLevel          = "info"
	DefaultPriorityCount     = 5
	DefaultSuccessfulCount   = 3
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 5 * time.Second
	DefaultAuthHeader        = "X-API-Key"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	// InputFile is the path of the delimited school metrics file.
	InputFile string `yaml:"input_file"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Interactive starts the text menu after the summary is printed.
	Interactive bool `yaml:"interactive"`

	Analysis AnalysisConfig `yaml:"analysis"`
	Report   ReportConfig   `yaml:"report"`
	Server   ServerConfig   `yaml:"server"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// AnalysisConfig sets the lengths of the ranked school lists.
type AnalysisConfig struct {
	PriorityCount   int `yaml:"priority_count"`
	SuccessfulCount int `yaml:"successful_count"`
}

// ReportConfig controls which report artefacts are written.
type ReportConfig struct {
	// TextFile is where the plain-text analysis report is written.
	// Empty disables the report file.
	TextFile string `yaml:"text_file"`

	// MetricsFile is where aggregates are written in Prometheus text
	// exposition format. Empty disables it.
	MetricsFile string `yaml:"metrics_file"`

	// Color enables ANSI colour in console output.
	Color *bool `yaml:"color"`
}

// ColorEnabled reports whether console colour is on (default true).
func (r ReportConfig) ColorEnabled() bool {
	return r.Color == nil || *r.Color
}

// ServerConfig configures the optional HTTP API and WebSocket stream.
type ServerConfig struct {
	Enabled bool `yaml:"enabled"`

	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval is how often the current analysis is pushed to
	// WebSocket clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures API key authentication for the HTTP API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the request header carrying the key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// AlertsConfig holds alert rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one condition evaluated after every analysis.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is a boolean expression over the analysis parameters, e.g.
	// "critical_count > 0" or "avg_obesity > 35 && disparity_factor > 1.3".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path. Variables from a .env
// file in the working directory are loaded first so *_env fields can refer
// to them. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Watch reloads path on every change and calls onChange with the new Config.
// If a reload fails the error is logged and onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return watch.File(ctx, path, func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path)
		onChange(cfg)
	})
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		InputFile: DefaultInputFile,
		LogLevel:  DefaultLogLevel,
		Analysis: AnalysisConfig{
			PriorityCount:   DefaultPriorityCount,
			SuccessfulCount: DefaultSuccessfulCount,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			Auth:              AuthConfig{Mode: "none", Header: DefaultAuthHeader},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.InputFile) == "" {
		return fmt.Errorf("input_file is required")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if cfg.Analysis.PriorityCount <= 0 {
		return fmt.Errorf("analysis.priority_count must be positive")
	}
	if cfg.Analysis.SuccessfulCount <= 0 {
		return fmt.Errorf("analysis.successful_count must be positive")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAuthHeader
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if strings.TrimSpace(r.Condition) == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		if _, err := govaluate.NewEvaluableExpression(r.Condition); err != nil {
			return fmt.Errorf("alerts.rules[%d] %q: invalid condition: %w", i, r.Name, err)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
