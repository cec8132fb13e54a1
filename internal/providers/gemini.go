package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// GeminiClient implements LLMClient using the Google GenAI SDK.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	client       *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		client:       client,
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a GenerateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
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
		Provider:  GeminiName,
		ModelUsed: model,
		Attempts:  1,
	}

	system, conversation := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(conversation))
	for _, m := range conversation {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		err = fmt.Errorf("GenAI generate failed: %w", err)
		result.fail(errorType(err), err, start)
		return result, err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		err := fmt.Errorf("%s: %w", GeminiName, errEmptyResponse)
		result.fail(errorType(err), err, start)
		return result, err
	}

	result.Success = true
	result.Content = resp.Text()
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		result.PromptTokens = int(usage.PromptTokenCount)
		result.CompletionTokens = int(usage.CandidatesTokenCount)
		result.TotalTokens = int(usage.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

var _ LLMClient = (*GeminiClient)(nil)
