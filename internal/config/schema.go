package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/aitrace/internal/classify"
)

// Config holds aitrace configuration.
// Stored at: ./config.yaml or $HOME/.aitrace/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Detect       DetectCfg                 `mapstructure:"detect" yaml:"detect"`
	Annotate     AnnotateCfg               `mapstructure:"annotate" yaml:"annotate"`
	LLMCalls     LLMCallsCfg               `mapstructure:"llmcalls" yaml:"llmcalls"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	// Type is one of dashscope, openai, openrouter, anthropic, gemini, mock.
	Type    string `mapstructure:"type" yaml:"type"`
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	// RateLimit is in requests per minute.
	RateLimit int  `mapstructure:"rate_limit" yaml:"rate_limit"`
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
}

// DetectCfg tunes the classification call.
type DetectCfg struct {
	Model          string  `mapstructure:"model" yaml:"model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTextLength  int     `mapstructure:"max_text_length" yaml:"max_text_length"` // In characters
}

// AnnotateCfg tunes the trace annotator.
type AnnotateCfg struct {
	LongLineThreshold int `mapstructure:"long_line_threshold" yaml:"long_line_threshold"`
}

// LLMCallsCfg sizes the in-memory call history.
type LLMCallsCfg struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        string   `mapstructure:"port" yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LogCfg configures logging.
type LogCfg struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"dashscope": {
				Type:      "dashscope",
				Model:     "qwen-plus",
				APIKey:    "${DASHSCOPE_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openrouter": {
				Type:      "openrouter",
				Model:     "qwen/qwen-plus",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"anthropic": {
				Type:      "anthropic",
				Model:     "claude-3-5-haiku-latest",
				APIKey:    "${ANTHROPIC_API_KEY}",
				RateLimit: 50,
				Enabled:   true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.0-flash",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"mock": {
				Type:    "mock",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "dashscope",
		},
		Detect: DetectCfg{
			Model:          "qwen-plus",
			Temperature:    0.2,
			TimeoutSeconds: 15,
			MaxTextLength:  8000,
		},
		Annotate: AnnotateCfg{
			LongLineThreshold: 80,
		},
		LLMCalls: LLMCallsCfg{
			Capacity: 200,
		},
		Server: ServerCfg{
			Host:        "127.0.0.1",
			Port:        "8000",
			CORSOrigins: []string{"*"},
		},
		Log: LogCfg{
			Level: "info",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// DetectorConfig converts the detect section for classify.Detector.
// Non-positive values fall back to the detector defaults.
func (c *Config) DetectorConfig() classify.Config {
	out := classify.DefaultConfig()
	if c.Detect.Model != "" {
		out.Model = c.Detect.Model
	}
	if c.Detect.Temperature >= 0 {
		out.Temperature = c.Detect.Temperature
	}
	if c.Detect.TimeoutSeconds > 0 {
		out.Timeout = time.Duration(c.Detect.TimeoutSeconds) * time.Second
	}
	return out
}

// MaxTextLength returns the detect input limit in characters.
func (c *Config) MaxTextLength() int {
	if c.Detect.MaxTextLength <= 0 {
		return DefaultConfig().Detect.MaxTextLength
	}
	return c.Detect.MaxTextLength
}

// LogLevel parses log.level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
