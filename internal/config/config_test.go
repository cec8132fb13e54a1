package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "dashscope" {
		t.Errorf("expected dashscope default provider, got %s", cfg.Defaults.LLMProvider)
	}
	if cfg.LLMProviders["dashscope"].APIKey != "${DASHSCOPE_API_KEY}" {
		t.Error("expected dashscope API key placeholder")
	}
	if cfg.Detect.Model != "qwen-plus" || cfg.Detect.Temperature != 0.2 || cfg.Detect.TimeoutSeconds != 15 {
		t.Errorf("unexpected detect defaults: %+v", cfg.Detect)
	}
	if cfg.Detect.MaxTextLength != 8000 {
		t.Errorf("expected max_text_length 8000, got %d", cfg.Detect.MaxTextLength)
	}
	if cfg.LLMProviders["mock"].Enabled {
		t.Error("mock provider should be disabled by default")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands embedded references", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.com")

		result := ResolveEnvVars("https://${TEST_HOST}/v1")
		if result != "https://example.com/v1" {
			t.Errorf("expected https://example.com/v1, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_DASHSCOPE_KEY", "ds-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"dashscope": {Type: "dashscope", Model: "qwen-plus", APIKey: "${TEST_DASHSCOPE_KEY}", RateLimit: 30, Enabled: true},
			"literal":   {Type: "openai", APIKey: "direct-key", BaseURL: "http://localhost:9999/v1"},
		},
	}

	got := cfg.ToProviderRegistryConfig()

	ds := got.LLMProviders["dashscope"]
	if ds.APIKey != "ds-key-123" || ds.RateLimit != 30 || !ds.Enabled || ds.Model != "qwen-plus" {
		t.Errorf("dashscope = %+v", ds)
	}
	lit := got.LLMProviders["literal"]
	if lit.APIKey != "direct-key" || lit.BaseURL != "http://localhost:9999/v1" || lit.Enabled {
		t.Errorf("literal = %+v", lit)
	}
}

func TestConfig_DetectorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detect.Model = "qwen-max"
	cfg.Detect.TimeoutSeconds = 3

	got := cfg.DetectorConfig()
	if got.Model != "qwen-max" || got.Timeout != 3*time.Second || got.Temperature != 0.2 {
		t.Errorf("DetectorConfig() = %+v", got)
	}

	cfg.Detect = DetectCfg{Temperature: -1}
	got = cfg.DetectorConfig()
	if got.Model != "qwen-plus" || got.Timeout != 15*time.Second || got.Temperature != 0.2 {
		t.Errorf("DetectorConfig() with empty section = %+v", got)
	}
	if cfg.MaxTextLength() != 8000 {
		t.Errorf("MaxTextLength() = %d", cfg.MaxTextLength())
	}
}

func TestConfig_LogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{Log: LogCfg{Level: in}}
		if got := cfg.LogLevel(); got != want {
			t.Errorf("LogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
detect:
  model: qwen-max
llm_providers:
  dashscope:
    rate_limit: 10
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Detect.Model != "qwen-max" {
			t.Errorf("expected qwen-max, got %s", cfg.Detect.Model)
		}
		// Unset keys keep their defaults.
		if cfg.Detect.TimeoutSeconds != 15 {
			t.Errorf("expected default timeout 15, got %d", cfg.Detect.TimeoutSeconds)
		}
		ds := cfg.LLMProviders["dashscope"]
		if ds.RateLimit != 10 || ds.Type != "dashscope" || ds.APIKey != "${DASHSCOPE_API_KEY}" {
			t.Errorf("dashscope provider not merged with defaults: %+v", ds)
		}
		if mgr.ConfigFileUsed() != configFile {
			t.Errorf("ConfigFileUsed() = %q", mgr.ConfigFileUsed())
		}
	})

	t.Run("adds providers from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
llm_providers:
  local:
    type: openai
    base_url: http://localhost:11434/v1
    enabled: true
defaults:
  llm_provider: local
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		local, ok := cfg.GetLLMProvider("local")
		if !ok || local.BaseURL != "http://localhost:11434/v1" || !local.Enabled {
			t.Errorf("local provider = %+v, ok=%v", local, ok)
		}
		if cfg.Defaults.LLMProvider != "local" {
			t.Errorf("default provider = %s", cfg.Defaults.LLMProvider)
		}
		if _, ok := cfg.EnabledLLMProviders()["mock"]; ok {
			t.Error("mock should not be enabled")
		}
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		configFile := writeConfig(t, "detect: [unclosed")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})

	t.Run("prefixed environment overrides", func(t *testing.T) {
		t.Setenv("AITRACE_DETECT_MODEL", "qwen-turbo")
		t.Setenv("AITRACE_SERVER_PORT", "9001")

		mgr, err := NewManager(writeConfig(t, "log:\n  level: debug\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Detect.Model != "qwen-turbo" {
			t.Errorf("expected qwen-turbo, got %s", cfg.Detect.Model)
		}
		if cfg.Server.Port != "9001" {
			t.Errorf("expected port 9001, got %s", cfg.Server.Port)
		}
	})

	t.Run("legacy environment names", func(t *testing.T) {
		t.Setenv("QWEN_MODEL", "qwen-long")
		t.Setenv("QWEN_TIMEOUT", "30")
		t.Setenv("DETECT_TEMPERATURE", "0.5")

		mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		d := mgr.Get().Detect
		if d.Model != "qwen-long" || d.TimeoutSeconds != 30 || d.Temperature != 0.5 {
			t.Errorf("detect = %+v", d)
		}
	})

	t.Run("prefixed name wins over legacy name", func(t *testing.T) {
		t.Setenv("QWEN_MODEL", "qwen-long")
		t.Setenv("AITRACE_DETECT_MODEL", "qwen-max")

		mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Detect.Model; got != "qwen-max" {
			t.Errorf("expected qwen-max, got %s", got)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "detect:\n  model: qwen-plus\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Detect.Model
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, `
detect:
  model: initial-model
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Detect.Model; got != "initial-model" {
		t.Errorf("initial value mismatch: expected initial-model, got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Detect.Model)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
detect:
  model: updated-model
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// fsnotify is async
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "updated-model" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Detect.Model; got != "updated-model" {
		t.Errorf("config not updated: expected updated-model, got %s", got)
	}
	if v := lastValue.Load(); v != "updated-model" {
		t.Errorf("callback received wrong value: expected updated-model, got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# aitrace configuration") {
		t.Error("missing header comment")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Detect.MaxTextLength != 8000 || cfg.LLMCalls.Capacity != 200 || cfg.Annotate.LongLineThreshold != 80 {
		t.Errorf("round-tripped defaults = %+v", cfg)
	}
	if len(cfg.LLMProviders) != len(DefaultConfig().LLMProviders) {
		t.Errorf("expected %d providers, got %d", len(DefaultConfig().LLMProviders), len(cfg.LLMProviders))
	}
}
