package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

const (
	AnthropicName         = "anthropic"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
	anthropicMaxTokens    = 1024
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// AnthropicClient implements LLMClient using the Anthropic Messages API.
type AnthropicClient struct {
	apiKey       string
	defaultModel string
	client       anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = anthropicDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithHTTPClient(httpClient),
		anthropicoption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		client:       anthropic.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// Chat sends a Messages API request. System messages become the system prompt.
func (c *AnthropicClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  AnthropicName,
		ModelUsed: model,
		Attempts:  1,
	}

	system, conversation := splitSystem(req.Messages)
	messages := make([]anthropic.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		err = c.mapError(err)
		result.fail(errorType(err), err, start)
		return result, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		err := fmt.Errorf("%s: %w", AnthropicName, errEmptyResponse)
		result.fail(errorType(err), err, start)
		return result, err
	}

	result.Success = true
	result.Content = text.String()
	if message.Model != "" {
		result.ModelUsed = string(message.Model)
	}
	result.PromptTokens = int(message.Usage.InputTokens)
	result.CompletionTokens = int(message.Usage.OutputTokens)
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

func (c *AnthropicClient) mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited", AnthropicName),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return fmt.Errorf("%s error (status %d): %w", AnthropicName, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s request failed: %w", AnthropicName, err)
}

var _ LLMClient = (*AnthropicClient)(nil)
