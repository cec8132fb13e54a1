package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"

	// DashScope serves Qwen models through an OpenAI-compatible endpoint.
	DashScopeName         = "dashscope"
	DashScopeBaseURL      = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DashScopeDefaultModel = "qwen-plus"
)

// OpenAIConfig holds configuration for OpenAI-compatible chat clients.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string        // Optional (DashScope, proxies, tests)
	DefaultModel string
	MaxRetries   int           // Retry attempts for SDK transport
	Timeout      time.Duration // HTTP timeout
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
// The same client serves DashScope's compatible mode.
type OpenAIClient struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	client       openai.Client
}

// NewOpenAIClient creates a client for the OpenAI API.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	return newOpenAICompatible(OpenAIName, cfg)
}

// NewDashScopeClient creates a client for Alibaba DashScope (Qwen models).
func NewDashScopeClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DashScopeBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DashScopeDefaultModel
	}
	return newOpenAICompatible(DashScopeName, cfg)
}

func newOpenAICompatible(name string, cfg OpenAIConfig) *OpenAIClient {
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:         name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
		ModelUsed: model,
		Attempts:  1,
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = c.mapError(err)
		result.fail(errorType(err), err, start)
		return result, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%s: %w", c.name, errEmptyResponse)
		result.fail(errorType(err), err, start)
		return result, err
	}

	result.Success = true
	result.Content = resp.Choices[0].Message.Content
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited: %s", c.name, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s error (status %d): %s", c.name, apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%s error (status %d)", c.name, apiErr.StatusCode)
	}
	return fmt.Errorf("%s request failed: %w", c.name, err)
}

var _ LLMClient = (*OpenAIClient)(nil)
