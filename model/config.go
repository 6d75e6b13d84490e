package model

import (
	"errors"
	"fmt"
)

// RegistryConfig is the configuration form of a Registry, as found under
// "models" in the application config file.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `yaml:"capabilities" json:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `yaml:"endpoints" json:"endpoints"`
	Defaults     *DefaultsConfig              `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Health       *HealthConfig                `yaml:"health,omitempty" json:"health,omitempty"`
}

// Validate checks that every model named by a capability has an endpoint
// and that every endpoint names a provider and a model.
func (c *RegistryConfig) Validate() error {
	var errs []error
	for name, ep := range c.Endpoints {
		if ep == nil {
			errs = append(errs, fmt.Errorf("endpoint %s: empty", name))
			continue
		}
		if ep.Provider == "" {
			errs = append(errs, fmt.Errorf("endpoint %s: provider is required", name))
		}
		if ep.Model == "" {
			errs = append(errs, fmt.Errorf("endpoint %s: model is required", name))
		}
	}
	for capName, cc := range c.Capabilities {
		if cc == nil {
			continue
		}
		for _, m := range append(append([]string{}, cc.Preferred...), cc.Fallback...) {
			if _, ok := c.Endpoints[m]; !ok {
				errs = append(errs, fmt.Errorf("capability %s: unknown model %s", capName, m))
			}
		}
	}
	return errors.Join(errs...)
}

// NewFromConfig builds a Registry from configuration. Capability names that
// are not built in are kept as-is.
func NewFromConfig(cfg *RegistryConfig) (*Registry, error) {
	if cfg == nil {
		return NewDefaultRegistry(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model registry: %w", err)
	}

	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		caps[Capability(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(cfg.Endpoints))
	for k, v := range cfg.Endpoints {
		endpoints[k] = v
	}

	r := NewRegistry(caps, endpoints)
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.defaults.Model = cfg.Defaults.Model
	}
	if cfg.Health != nil {
		r.SetHealthConfig(*cfg.Health)
	}
	return r, nil
}

// ToConfig converts a Registry to a RegistryConfig for serialization.
func (r *Registry) ToConfig() *RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[string(k)] = v
	}
	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = v
	}
	defaults := *r.defaults

	return &RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
		Defaults:     &defaults,
	}
}
