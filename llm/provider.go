package llm

import (
	"net/http"
	"sort"
	"sync"
)

// Provider defines the interface for LLM provider implementations.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic", "ollama").
	Name() string

	// BuildURL constructs the full API endpoint URL. baseURL may be empty to
	// use the provider default.
	BuildURL(baseURL, model string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for the provider.
	// temperature is nil to use provider default.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the response from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

// Providers is a set of providers keyed by name.
type Providers struct {
	mu     sync.RWMutex
	byName map[string]Provider
}

// NewProviders creates a set holding ps.
func NewProviders(ps ...Provider) *Providers {
	set := &Providers{byName: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		set.Register(p)
	}
	return set
}

// Register adds or replaces a provider.
func (s *Providers) Register(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[p.Name()] = p
}

// Get returns the provider with the given name, or nil.
func (s *Providers) Get(name string) Provider {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// Names returns all provider names, sorted.
func (s *Providers) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
