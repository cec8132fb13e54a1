// Package llmcall provides LLM call recording and querying for traceability.
// Every model call made on behalf of a detection is recorded with its prompt key,
// response, and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/aitrace/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Correlates with the provider request
	RequestID string `json:"request_id,omitempty"`

	// Prompt traceability
	PromptKey string `json:"prompt_key"`

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	Attempts    int      `json:"attempts,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response"`

	// Status
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Prompt identification (required for traceability)
	PromptKey string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	latency := result.TotalTime
	if latency == 0 {
		latency = result.ExecutionTime
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(latency.Milliseconds()),
		RequestID:    result.RequestID,
		PromptKey:    opts.PromptKey,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Attempts:     result.Attempts,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		Response:     result.Content,
		Success:      result.Success,
	}

	if opts.Temperature != nil {
		t := *opts.Temperature
		call.Temperature = &t
	}

	if !result.Success {
		call.ErrorType = result.ErrorType
		call.Error = result.ErrorMessage
	}

	return call
}
