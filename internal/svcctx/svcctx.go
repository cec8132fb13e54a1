// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/aitrace/internal/classify"
	"github.com/jackzampolin/aitrace/internal/config"
	"github.com/jackzampolin/aitrace/internal/gateway"
	"github.com/jackzampolin/aitrace/internal/llmcall"
	"github.com/jackzampolin/aitrace/internal/providers"
	"github.com/jackzampolin/aitrace/internal/traces"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry      *providers.Registry
	Gateway       *gateway.ProviderGateway
	Detector      *classify.Detector
	Annotator     *traces.Annotator
	LLMCallStore  *llmcall.Store
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// GatewayFrom extracts the model gateway from context.
func GatewayFrom(ctx context.Context) *gateway.ProviderGateway {
	if s := ServicesFrom(ctx); s != nil {
		return s.Gateway
	}
	return nil
}

// DetectorFrom extracts the text classifier from context.
func DetectorFrom(ctx context.Context) *classify.Detector {
	if s := ServicesFrom(ctx); s != nil {
		return s.Detector
	}
	return nil
}

// AnnotatorFrom extracts the trace annotator from context.
// Falls back to a default annotator so handlers never see nil.
func AnnotatorFrom(ctx context.Context) *traces.Annotator {
	if s := ServicesFrom(ctx); s != nil && s.Annotator != nil {
		return s.Annotator
	}
	return traces.New(traces.Options{})
}

// LLMCallStoreFrom extracts the LLM call store from context.
func LLMCallStoreFrom(ctx context.Context) *llmcall.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCallStore
	}
	return nil
}

// ConfigFrom returns the current configuration, or the defaults
// when no config manager is attached.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil && s.ConfigManager != nil {
		return s.ConfigManager.Get()
	}
	return config.DefaultConfig()
}

// LoggerFrom extracts the logger from context.
// Returns slog.Default() when none is attached.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
