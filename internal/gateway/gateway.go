// Package gateway sends prompts to the configured model provider and returns
// the raw response text. It owns provider selection, rate limiting, timeouts
// and call recording; it knows nothing about what the prompts mean.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/aitrace/internal/llmcall"
	"github.com/jackzampolin/aitrace/internal/providers"
)

var (
	// ErrNotConfigured means no usable provider (or credential) is configured.
	ErrNotConfigured = errors.New("model provider not configured")

	// ErrProvider wraps every failure reported by, or on the way to, a provider.
	ErrProvider = errors.New("model provider failed")

	// ErrTimeout is a provider failure caused by the request deadline.
	ErrTimeout = fmt.Errorf("%w: timed out", ErrProvider)
)

// Request is a single prompt exchange.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Model        string // Provider default when empty
	Temperature  float64
	Timeout      time.Duration // No deadline beyond ctx when zero

	// PromptKey labels the call in the llmcall history.
	PromptKey string
}

// Response is the raw model output plus call metadata.
type Response struct {
	Text             string        `json:"text"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Latency          time.Duration `json:"latency"`
	CallID           string        `json:"call_id,omitempty"`
}

// Gateway turns a prompt into raw model text.
type Gateway interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config holds ProviderGateway dependencies.
type Config struct {
	Registry *providers.Registry
	Recorder *llmcall.Recorder
	Logger   *slog.Logger

	// Provider is the registry name used for every request.
	Provider string
}

// ProviderGateway implements Gateway on top of a providers.Registry.
type ProviderGateway struct {
	registry *providers.Registry
	recorder *llmcall.Recorder
	logger   *slog.Logger

	mu       sync.RWMutex
	provider string
}

// New creates a ProviderGateway.
func New(cfg Config) *ProviderGateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderGateway{
		registry: cfg.Registry,
		recorder: cfg.Recorder,
		logger:   logger,
		provider: cfg.Provider,
	}
}

// SetProvider switches the provider used for subsequent requests.
func (g *ProviderGateway) SetProvider(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.provider = name
}

// Provider returns the provider name in use.
func (g *ProviderGateway) Provider() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.provider
}

// Ready reports whether the configured provider is registered.
func (g *ProviderGateway) Ready() bool {
	name := g.Provider()
	return name != "" && g.registry != nil && g.registry.HasLLM(name)
}

// Generate sends the prompt pair to the configured provider.
func (g *ProviderGateway) Generate(ctx context.Context, req Request) (Response, error) {
	name := g.Provider()
	if name == "" || g.registry == nil {
		return Response{}, fmt.Errorf("%w: no default provider set", ErrNotConfigured)
	}
	client, err := g.registry.GetLLM(name)
	if err != nil {
		return Response{}, fmt.Errorf("%w: provider %q is not registered (missing API key?)", ErrNotConfigured, name)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	limiter := g.registry.Limiter(name)
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Response{}, g.wrap(ctx, name, req, fmt.Errorf("rate limiter: %w", err))
		}
	}

	messages := make([]providers.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: req.UserPrompt})

	result, err := client.Chat(ctx, &providers.ChatRequest{
		Messages:    messages,
		Model:       req.Model,
		Temperature: req.Temperature,
		Timeout:     req.Timeout,
		RequestID:   uuid.New().String(),
	})

	temperature := req.Temperature
	call := g.recorder.Record(result, llmcall.RecordOptions{
		PromptKey:   req.PromptKey,
		Temperature: &temperature,
	})

	if err != nil {
		if rle, ok := providers.IsRateLimitError(err); ok && limiter != nil {
			limiter.Record429(rle.RetryAfter)
		}
		return Response{}, g.wrap(ctx, name, req, err)
	}

	resp := Response{
		Text:             result.Content,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		Latency:          result.TotalTime,
	}
	if call != nil {
		resp.CallID = call.ID
	}

	g.logger.Debug("model call completed",
		"provider", resp.Provider,
		"model", resp.Model,
		"latency", resp.Latency,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return resp, nil
}

// wrap classifies a failure as a timeout or generic provider error.
func (g *ProviderGateway) wrap(ctx context.Context, name string, req Request, err error) error {
	var wrapped error
	if isTimeout(ctx, err) {
		wrapped = fmt.Errorf("%w after %s (provider %s): %w", ErrTimeout, req.Timeout, name, err)
	} else {
		wrapped = fmt.Errorf("%w (provider %s): %w", ErrProvider, name, err)
	}
	g.logger.Warn("model call failed", "provider", name, "model", req.Model, "error", err)
	return wrapped
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

var _ Gateway = (*ProviderGateway)(nil)
