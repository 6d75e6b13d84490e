package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != "127.0.0.1:8501" {
		t.Errorf("expected default addr 127.0.0.1:8501, got %s", cfg.Server.Addr)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %f", cfg.LLM.Temperature)
	}
	if !cfg.Sandbox.Enabled || cfg.Sandbox.Timeout != 10*time.Second {
		t.Errorf("expected enabled sandbox with 10s timeout, got %+v", cfg.Sandbox)
	}
	if cfg.Pipeline.MaxRevisions != 0 {
		t.Errorf("expected no revisions by default, got %d", cfg.Pipeline.MaxRevisions)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected NATS disabled by default, got %s", cfg.NATS.URL)
	}
	if cfg.NATS.RunBucket != "AMPDESIGN_RUNS" {
		t.Errorf("expected default run bucket AMPDESIGN_RUNS, got %s", cfg.NATS.RunBucket)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server.addr",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.LLM.Temperature = 1.1 },
			wantErr: "llm.temperature",
		},
		{
			name:    "zero retry attempts",
			modify:  func(c *Config) { c.LLM.Retry.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "zero stage timeout",
			modify:  func(c *Config) { c.Pipeline.StageTimeout = 0 },
			wantErr: "stage_timeout",
		},
		{
			name:    "negative revisions",
			modify:  func(c *Config) { c.Pipeline.MaxRevisions = -1 },
			wantErr: "max_revisions",
		},
		{
			name:    "zero bias current",
			modify:  func(c *Config) { c.Pipeline.Bias.DrainCurrent = 0 },
			wantErr: "drain_current",
		},
		{
			name:    "negative bias capacitance",
			modify:  func(c *Config) { c.Pipeline.Bias.Cgd = -1e-12 },
			wantErr: "capacitances",
		},
		{
			name:    "inverted sweep",
			modify:  func(c *Config) { c.Pipeline.Sweep.FStop = 1 },
			wantErr: "pipeline.sweep",
		},
		{
			name:    "sweep without points",
			modify:  func(c *Config) { c.Pipeline.Sweep.PointsPerDecade = 0 },
			wantErr: "points per decade",
		},
		{
			name:    "sandbox without interpreter",
			modify:  func(c *Config) { c.Sandbox.Interpreter = "" },
			wantErr: "sandbox.interpreter",
		},
		{
			name: "disabled sandbox ignores interpreter",
			modify: func(c *Config) {
				c.Sandbox.Enabled = false
				c.Sandbox.Interpreter = ""
			},
		},
		{
			name: "nats without prefix",
			modify: func(c *Config) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.SubjectPrefix = ""
			},
			wantErr: "subject_prefix",
		},
		{
			name: "negative run ttl",
			modify: func(c *Config) {
				c.NATS.RunTTL = -time.Hour
			},
			wantErr: "run_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	level, err := LogConfig{Level: "debug"}.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v (%v)", level, err)
	}
	level, err = LogConfig{Level: "WARN"}.SlogLevel()
	if err != nil || level != slog.LevelWarn {
		t.Errorf("expected warn level, got %v (%v)", level, err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  addr: ":9000"
llm:
  temperature: 0.5
  retry:
    max_attempts: 5
    backoff_base: 1s
pipeline:
  max_revisions: 2
  bias:
    drain_current: 0.002
  sweep:
    f_start: 100
    f_stop: 10000000
sandbox:
  enabled: false
models:
  capabilities:
    coding:
      preferred: [local]
  endpoints:
    local:
      provider: ollama
      url: http://gpu:11434/v1
      model: qwen2.5-coder:7b
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Server.RunTimeout != 15*time.Minute {
		t.Errorf("expected run timeout to remain default, got %v", cfg.Server.RunTimeout)
	}
	if cfg.LLM.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", cfg.LLM.Temperature)
	}
	if cfg.LLM.Retry.MaxAttempts != 5 || cfg.LLM.Retry.BackoffBase != time.Second {
		t.Errorf("unexpected retry config %+v", cfg.LLM.Retry)
	}
	if cfg.LLM.Retry.MaxBackoff != 30*time.Second {
		t.Errorf("expected max backoff to remain default, got %v", cfg.LLM.Retry.MaxBackoff)
	}
	if cfg.Pipeline.MaxRevisions != 2 {
		t.Errorf("expected 2 revisions, got %d", cfg.Pipeline.MaxRevisions)
	}
	if cfg.Pipeline.Bias.DrainCurrent != 0.002 || cfg.Pipeline.Bias.Cgs != 5e-12 {
		t.Errorf("expected drain current override with default Cgs, got %+v", cfg.Pipeline.Bias)
	}
	if cfg.Pipeline.Sweep.FStart != 100 || cfg.Pipeline.Sweep.FStop != 1e7 || cfg.Pipeline.Sweep.PointsPerDecade != 10 {
		t.Errorf("expected sweep override with default density, got %+v", cfg.Pipeline.Sweep)
	}
	if cfg.Sandbox.Enabled {
		t.Error("expected sandbox to be disabled")
	}

	registry, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if ep := registry.GetEndpoint("local"); ep == nil || ep.Model != "qwen2.5-coder:7b" {
		t.Errorf("expected local endpoint from config, got %+v", ep)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected parse error")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "designs", "cs")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
server:
  addr: ":7000"
log:
  level: debug
pipeline:
  max_revisions: 1
`)
	writeFile(t, filepath.Join(project, ProjectConfigFile), `
pipeline:
  max_revisions: 3
`)
	explicit := filepath.Join(t.TempDir(), "run.yaml")
	writeFile(t, explicit, `
sandbox:
  timeout: 30s
`)

	t.Setenv("HOME", home)
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvNATSURL, "")
	t.Chdir(nested)

	cfg, err := NewLoader(nil).Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected user addr :7000, got %s", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected user log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Pipeline.MaxRevisions != 3 {
		t.Errorf("expected project config to win, got %d", cfg.Pipeline.MaxRevisions)
	}
	if cfg.Sandbox.Timeout != 30*time.Second {
		t.Errorf("expected explicit sandbox timeout, got %v", cfg.Sandbox.Timeout)
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv(EnvAddr, "0.0.0.0:80")
	t.Setenv(EnvNATSURL, "nats://broker:4222")

	cfg, err := NewLoader(nil).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:80" {
		t.Errorf("expected env addr, got %s", cfg.Server.Addr)
	}
	if cfg.NATS.URL != "nats://broker:4222" {
		t.Errorf("expected env NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoaderMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if _, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoaderRejectsInvalidResult(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), "llm:\n  temperature: 3\n")
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	if _, err := NewLoader(nil).Load(""); err == nil {
		t.Error("expected validation error")
	}
}
