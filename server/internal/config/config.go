package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/pkg/types"
)

// AlertsConfig holds quality-gate rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based quality gate.
type AlertRule struct {
	// Name is the human-readable gate identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over evaluation metrics:
	// "recall < 80", "false_negatives > 0", "takt_time >= 50".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after a gate fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultDataset           = "sensor_logs/sensor_logs.csv"
	DefaultRunLogPath        = "logs/participant_runs.csv"
	DefaultEvaluationTTL     = 30 * time.Minute
	DefaultBroadcastInterval = 5 * time.Second
	DefaultInvestmentCost    = 5000.0
)

// Config holds the server-side configuration parsed from the `server:` section
// of the config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Dataset is the sensor log CSV every evaluation runs against.
	Dataset string `yaml:"dataset"`

	// DefaultPolicy is used for evaluate requests that carry neither a
	// preset nor a policy.
	DefaultPolicy types.Policy `yaml:"default_policy"`

	// EvaluationTTL is how long a team's latest evaluation stays live.
	EvaluationTTL time.Duration `yaml:"evaluation_ttl"`

	// BroadcastInterval is the WebSocket push period.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	RunLog runlog.Config `yaml:"runlog"`

	// Auth configures how the server authenticates REST clients.
	Auth AuthConfig `yaml:"auth"`

	// Alerts holds quality-gate definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	ROI ROIConfig `yaml:"roi"`

	LogLevel string `yaml:"log_level"`
}

// ROIConfig holds server-wide ROI inputs.
type ROIConfig struct {
	// InvestmentCost is reported alongside each evaluation's ROI.
	InvestmentCost float64 `yaml:"investment_cost"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			Dataset:           DefaultDataset,
			DefaultPolicy:     types.DefaultPolicy(),
			EvaluationTTL:     DefaultEvaluationTTL,
			BroadcastInterval: DefaultBroadcastInterval,
			RunLog: runlog.Config{
				Backend: runlog.BackendCSV,
				Path:    DefaultRunLogPath,
			},
			ROI:      ROIConfig{InvestmentCost: DefaultInvestmentCost},
			LogLevel: "info",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if strings.TrimSpace(s.Dataset) == "" {
		return fmt.Errorf("server.dataset is required")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.EvaluationTTL < 0 {
		return fmt.Errorf("server.evaluation_ttl must not be negative")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if !runlog.ValidBackend(s.RunLog.Backend) {
		return fmt.Errorf("server.runlog.backend %q unknown: want csv|sqlite|postgres", s.RunLog.Backend)
	}
	if b := s.DefaultPolicy.ManualBand; b.Low > b.High {
		return fmt.Errorf("server.default_policy.manual_band low %v exceeds high %v", b.Low, b.High)
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
