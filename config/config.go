// Package config provides configuration loading and management for ampdesign.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ampdesign/llm"
	"github.com/c360studio/ampdesign/model"
	"github.com/c360studio/ampdesign/nodal"
	"github.com/c360studio/ampdesign/smallsignal"
)

// Config represents the complete ampdesign configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	LLM      LLMConfig      `yaml:"llm"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	NATS     NATSConfig     `yaml:"nats"`

	// Models replaces the built-in model registry when set.
	Models *model.RegistryConfig `yaml:"models,omitempty"`
}

// ServerConfig configures the web server
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8501)
	Addr string `yaml:"addr"`
	// RunTimeout bounds one pipeline run started from the web form or API
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// LLMConfig configures requests sent to the model endpoints
type LLMConfig struct {
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// MaxTokens limits each response (0 = endpoint default)
	MaxTokens int `yaml:"max_tokens"`
	// RequestTimeout is the HTTP timeout for a single request
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Retry          llm.RetryConfig `yaml:"retry"`
}

// PromptsConfig configures prompt overrides
type PromptsConfig struct {
	// Dir holds <stage>.md override files, searched recursively (empty = built-ins only)
	Dir string `yaml:"dir"`
	// Watch reloads overrides when files in Dir change
	Watch bool `yaml:"watch"`
}

// PipelineConfig configures the design pipeline
type PipelineConfig struct {
	// StageTimeout bounds each stage
	StageTimeout time.Duration `yaml:"stage_timeout"`
	// MaxRevisions is how many times a failed validation may send the run
	// back to an earlier stage (0 = never)
	MaxRevisions int `yaml:"max_revisions"`
	// Bias fills in the operating point a request leaves out
	Bias smallsignal.Bias `yaml:"bias"`
	// Sweep is the frequency range of the response sweep and Bode plot
	Sweep nodal.SweepConfig `yaml:"sweep"`
}

// SandboxConfig configures execution of generated Python code
type SandboxConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interpreter string        `yaml:"interpreter"`
	Timeout     time.Duration `yaml:"timeout"`
	// TempDir holds the scratch scripts (empty = os.TempDir())
	TempDir string `yaml:"temp_dir"`
}

// NATSConfig configures stage event publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = events disabled)
	URL string `yaml:"url"`
	// SubjectPrefix starts every event subject
	SubjectPrefix string `yaml:"subject_prefix"`
	// RunBucket is the JetStream KV bucket finished runs are saved to
	// (empty = runs are not saved)
	RunBucket string `yaml:"run_bucket"`
	// RunTTL expires saved runs (0 = keep forever)
	RunTTL time.Duration `yaml:"run_ttl"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       "127.0.0.1:8501",
			RunTimeout: 15 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		LLM: LLMConfig{
			Temperature:    0.2,
			RequestTimeout: 180 * time.Second,
			Retry:          llm.DefaultRetryConfig(),
		},
		Pipeline: PipelineConfig{
			StageTimeout: 3 * time.Minute,
			MaxRevisions: 0,
			Bias:         smallsignal.DefaultBias(),
			Sweep:        nodal.DefaultSweep(),
		},
		Sandbox: SandboxConfig{
			Enabled:     true,
			Interpreter: "python3",
			Timeout:     10 * time.Second,
		},
		NATS: NATSConfig{
			SubjectPrefix: "ampdesign",
			RunBucket:     "AMPDESIGN_RUNS",
			RunTTL:        30 * 24 * time.Hour,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errs = append(errs, errors.New("llm.temperature must be between 0 and 1"))
	}
	if c.LLM.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.retry.max_attempts must be at least 1"))
	}
	if c.Pipeline.StageTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.stage_timeout must be positive"))
	}
	if c.Pipeline.MaxRevisions < 0 {
		errs = append(errs, errors.New("pipeline.max_revisions must not be negative"))
	}
	if c.Pipeline.Bias.DrainCurrent <= 0 {
		errs = append(errs, errors.New("pipeline.bias.drain_current must be positive"))
	}
	if c.Pipeline.Bias.Cgs < 0 || c.Pipeline.Bias.Cgd < 0 {
		errs = append(errs, errors.New("pipeline.bias capacitances must not be negative"))
	}
	if err := c.Pipeline.Sweep.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.sweep: %w", err))
	}
	if c.Sandbox.Enabled {
		if c.Sandbox.Interpreter == "" {
			errs = append(errs, errors.New("sandbox.interpreter is required when the sandbox is enabled"))
		}
		if c.Sandbox.Timeout <= 0 {
			errs = append(errs, errors.New("sandbox.timeout must be positive"))
		}
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		errs = append(errs, errors.New("nats.subject_prefix is required when nats.url is set"))
	}
	if c.NATS.RunTTL < 0 {
		errs = append(errs, errors.New("nats.run_ttl must not be negative"))
	}
	if c.Models != nil {
		if err := c.Models.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("models: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// Registry builds the model registry described by Models, or the default
// registry when Models is unset.
func (c *Config) Registry() (*model.Registry, error) {
	return model.NewFromConfig(c.Models)
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.applyFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

// applyFile decodes path over c. Fields the file does not mention keep
// their current value.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Environment variables that override file configuration.
const (
	EnvAddr    = "AMPDESIGN_ADDR"
	EnvNATSURL = "NATS_URL"
)

func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}
	if url := os.Getenv(EnvNATSURL); url != "" {
		c.NATS.URL = url
	}
}
