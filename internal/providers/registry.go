package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds references to LLM clients and their rate limiters.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	configs    map[string]LLMProviderConfig
	limiters   map[string]*RateLimiter
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		limiters:   make(map[string]*RateLimiter),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name with a default rate limiter.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.configs, name)
	r.limiters[name] = NewRateLimiter(DefaultRequestsPerMinute)
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// Limiter returns the rate limiter for a registered client, or nil.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// RateLimiterStatuses returns limiter state keyed by provider name.
func (r *Registry) RateLimiterStatuses() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RateLimiterStatus, len(r.limiters))
	for name, rl := range r.limiters {
		out[name] = rl.Status()
	}
	return out
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "dashscope", "openai", "openrouter", "anthropic", "gemini", "mock"
	Model     string // Default model name
	APIKey    string // Resolved API key
	BaseURL   string // Optional endpoint override
	RateLimit int    // Requests per minute
	Enabled   bool
}

// usable reports whether a provider config should produce a client.
// The mock provider needs no API key.
func (c LLMProviderConfig) usable() bool {
	if !c.Enabled {
		return false
	}
	return c.Type == MockClientName || c.APIKey != ""
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Track which providers should exist
	want := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.usable() {
			continue
		}

		existing, hasExisting := r.configs[name]
		if hasExisting && existing == provCfg {
			want[name] = true
			continue
		}

		client, err := createLLMClient(provCfg)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("failed to create LLM client", "name", name, "type", provCfg.Type, "error", err)
			}
			continue
		}
		want[name] = true

		r.llmClients[name] = client
		r.configs[name] = provCfg
		r.limiters[name] = NewRateLimiter(provCfg.RateLimit)
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.llmClients {
		if !want[name] {
			r.remove(name)
		}
	}
}

// remove must be called with the lock held.
func (r *Registry) remove(name string) {
	if _, ok := r.llmClients[name]; !ok {
		return
	}
	delete(r.llmClients, name)
	delete(r.configs, name)
	delete(r.limiters, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) (LLMClient, error) {
	switch cfg.Type {
	case DashScopeName:
		return NewDashScopeClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case AnthropicName:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case GeminiName:
		client, err := NewGeminiClient(GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case MockClientName:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
