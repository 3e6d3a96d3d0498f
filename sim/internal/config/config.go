package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qcsim/qcsim/pkg/runlog"
	"github.com/qcsim/qcsim/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDataset        = "sensor_logs/sensor_logs.csv"
	DefaultRunLogPath     = "logs/participant_runs.csv"
	DefaultInvestmentCost = 5000.0
	DefaultLogLevel       = "info"
	DefaultBufferSize     = 64

	// baselineMultiplier derives a baseline defect cost when none is configured.
	baselineMultiplier = 2.0
)

// Config is the top-level simulator configuration.
type Config struct {
	Sim SimConfig `yaml:"sim"`
}

// SimConfig holds all simulator settings.
type SimConfig struct {
	// Dataset is the path of the sensor log CSV.
	Dataset string `yaml:"dataset"`

	// Preset selects a named scenario preset. When set it replaces Policy.
	Preset string `yaml:"preset"`

	// PolicyConfig is the inline inspection policy.
	PolicyConfig types.Policy `yaml:"policy"`

	// NormalizeWeights rescales the channel weights to sum to 1 before
	// evaluation. Default true.
	NormalizeWeights bool `yaml:"normalize_weights"`

	// Team, when non-empty, saves every evaluation to the run log under this name.
	Team string `yaml:"team"`

	ROI ROIConfig `yaml:"roi"`

	RunLog runlog.Config `yaml:"runlog"`

	// Server, when Endpoint is set, also submits every team run to a shared
	// qcsim-server.
	Server ServerConfig `yaml:"server"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// ROIConfig holds the two externally supplied ROI inputs.
type ROIConfig struct {
	// BaselineDefectCost is the defect cost of the manual process. When
	// absent it defaults to twice the evaluated defect cost.
	BaselineDefectCost *float64 `yaml:"baseline_defect_cost"`

	// InvestmentCost is the one-time cost of the AI system.
	InvestmentCost float64 `yaml:"investment_cost"`
}

// ServerConfig locates the qcsim-server that team runs are shipped to.
type ServerConfig struct {
	// Endpoint is the server base URL, e.g. "http://qc-lab:8080". Empty disables shipping.
	Endpoint string `yaml:"endpoint"`

	// Auth configures the API key sent with each submission.
	Auth AuthConfig `yaml:"auth"`

	// BufferSize is the number of pending submissions held while the server
	// is unreachable. Default 64.
	BufferSize int `yaml:"buffer_size"`
}

// AuthConfig controls how the simulator authenticates to the server.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header carrying the key. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the API key resolved from the environment.
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

// Baseline returns the configured baseline defect cost, or the default
// derived from the current defect cost.
func (r ROIConfig) Baseline(currentDefectCost float64) float64 {
	if r.BaselineDefectCost != nil {
		return *r.BaselineDefectCost
	}
	return currentDefectCost * baselineMultiplier
}

// Policy returns the effective policy for an evaluation.
func (c SimConfig) Policy() (types.Policy, error) {
	p := c.PolicyConfig
	if c.Preset != "" {
		preset, err := types.Preset(c.Preset)
		if err != nil {
			return types.Policy{}, err
		}
		p = preset
	}
	if c.NormalizeWeights {
		p = p.NormalizeWeights()
	}
	return p, nil
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Sim: SimConfig{
			Dataset:          DefaultDataset,
			PolicyConfig:     types.DefaultPolicy(),
			NormalizeWeights: true,
			ROI: ROIConfig{
				InvestmentCost: DefaultInvestmentCost,
			},
			RunLog: runlog.Config{
				Backend: runlog.BackendCSV,
				Path:    DefaultRunLogPath,
			},
			Server:   ServerConfig{BufferSize: DefaultBufferSize},
			LogLevel: DefaultLogLevel,
		},
	}
}

// validate checks required fields and the ranges a caller must keep the
// policy within.
func validate(cfg *Config) error {
	s := cfg.Sim
	if s.Dataset == "" {
		return fmt.Errorf("sim.dataset is required")
	}
	if s.Preset != "" {
		if _, err := types.Preset(s.Preset); err != nil {
			return fmt.Errorf("sim.preset: %w", err)
		}
	}

	p := s.PolicyConfig
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"confidence_threshold", p.ConfidenceThreshold},
		{"manual_band.low", p.ManualBand.Low},
		{"manual_band.high", p.ManualBand.High},
		{"vibration_weight", p.VibrationWeight},
		{"acoustic_weight", p.AcousticWeight},
		{"sampling_rate", p.SamplingRate},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("sim.policy.%s %v is out of range [0, 1]", f.name, f.v)
		}
	}
	if p.ManualBand.Low > p.ManualBand.High {
		return fmt.Errorf("sim.policy.manual_band: low %v exceeds high %v", p.ManualBand.Low, p.ManualBand.High)
	}
	if !s.NormalizeWeights && p.VibrationWeight+p.AcousticWeight == 0 {
		return fmt.Errorf("sim.policy: weights are both zero")
	}

	if s.ROI.BaselineDefectCost != nil && *s.ROI.BaselineDefectCost < 0 {
		return fmt.Errorf("sim.roi.baseline_defect_cost must not be negative")
	}

	if !runlog.ValidBackend(s.RunLog.Backend) {
		return fmt.Errorf("sim.runlog.backend %q unknown: want csv|sqlite|postgres", s.RunLog.Backend)
	}
	if s.Server.Endpoint != "" {
		u, err := url.Parse(s.Server.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sim.server.endpoint %q must be an http(s) URL", s.Server.Endpoint)
		}
	}
	switch s.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("sim.server.auth.mode %q unknown: want apikey|none", s.Server.Auth.Mode)
	}
	if s.Server.BufferSize <= 0 {
		return fmt.Errorf("sim.server.buffer_size must be positive")
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("sim.log_level %q unknown", s.LogLevel)
	}
	return nil
}
