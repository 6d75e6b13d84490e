package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCapabilityForStage(t *testing.T) {
	tests := []struct {
		stage string
		want  Capability
	}{
		{"analysis", CapabilityFast},
		{"component-selection", CapabilityReasoning},
		{"netlist", CapabilityCoding},
		{"code-generation", CapabilityCoding},
		{"validation", CapabilityWriting},
	}
	for _, tt := range tests {
		if got := CapabilityForStage(tt.stage); got != tt.want {
			t.Errorf("CapabilityForStage(%q) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestParseCapability(t *testing.T) {
	if got := ParseCapability("coding"); got != CapabilityCoding {
		t.Errorf("ParseCapability(coding) = %q", got)
	}
	if got := ParseCapability("planning"); got != "" {
		t.Errorf("ParseCapability(planning) = %q, want empty", got)
	}
}

func TestDefaultRegistryChains(t *testing.T) {
	r := NewDefaultRegistry()

	if got := r.Resolve(CapabilityFast); got != "gemini-flash-lite" {
		t.Errorf("Resolve(fast) = %q", got)
	}

	chain := r.ForStage("netlist")
	want := []string{"gemini-flash", "claude-sonnet", "qwen"}
	if strings.Join(chain, ",") != strings.Join(want, ",") {
		t.Errorf("ForStage(netlist) = %v, want %v", chain, want)
	}

	for _, name := range r.ListEndpoints() {
		if r.GetEndpoint(name) == nil {
			t.Errorf("endpoint %s listed but missing", name)
		}
	}

	if got := r.GetFallbackChain("unknown"); len(got) != 1 || got[0] != "qwen" {
		t.Errorf("unknown capability chain = %v, want [qwen]", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := &RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"coding": {Preferred: []string{"local"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"local": {Provider: "ollama", Model: "llama3.2"},
		},
		Defaults: &DefaultsConfig{Model: "local"},
		Health:   &HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour},
	}

	r, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if got := r.Resolve(CapabilityCoding); got != "local" {
		t.Errorf("Resolve(coding) = %q", got)
	}
	if got := r.Resolve(CapabilityFast); got != "local" {
		t.Errorf("Resolve(fast) = %q, want default", got)
	}

	r.MarkEndpointFailure("local")
	if r.IsEndpointAvailable("local") {
		t.Error("threshold 1 should open the circuit on the first failure")
	}

	out := r.ToConfig()
	if out.Defaults.Model != "local" || out.Endpoints["local"].Model != "llama3.2" {
		t.Errorf("ToConfig lost data: %+v", out)
	}
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := &RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"coding": {Preferred: []string{"missing"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"bad": {Model: "x"},
		},
	}
	_, err := NewFromConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown model missing", "endpoint bad: provider is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestNewFromConfig_NilUsesDefaults(t *testing.T) {
	r, err := NewFromConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.ListCapabilities()) != 4 {
		t.Errorf("capabilities = %v", r.ListCapabilities())
	}
}

func TestRegistryMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewDefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	var cfg RegistryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoints["gemini-flash"].Provider != "gemini" {
		t.Errorf("gemini-flash endpoint = %+v", cfg.Endpoints["gemini-flash"])
	}
}

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be available initially")
	}
	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("qwen")
	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available || health.FailureCount != 0 || health.LastSuccess.IsZero() {
		t.Errorf("unexpected health after success: %+v", health)
	}
}

func TestCircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.health.now = func() time.Time { return now }

	r.MarkEndpointFailure("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be available after 1 failure")
	}

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected circuit to open after 2 failures")
	}

	chain := r.GetAvailableFallbackChain(CapabilityFast)
	if len(chain) != 1 || chain[0] != "gemini-flash-lite" {
		t.Errorf("available chain = %v", chain)
	}

	now = now.Add(2 * time.Minute)
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected half-open after recovery timeout")
	}

	r.MarkEndpointSuccess("qwen")
	if h := r.GetEndpointHealth("qwen"); h.CircuitOpen || h.FailureCount != 0 {
		t.Errorf("success should close the circuit: %+v", h)
	}
}

func TestAllOpenReturnsFullChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	r.MarkEndpointFailure("gemini-flash-lite")
	r.MarkEndpointFailure("qwen")

	chain := r.GetAvailableFallbackChain(CapabilityFast)
	if len(chain) != 2 {
		t.Errorf("expected full chain when all are open, got %v", chain)
	}

	r.ResetEndpointHealth("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("reset should clear the circuit")
	}
}
