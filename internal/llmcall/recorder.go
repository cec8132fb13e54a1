package llmcall

import (
	"log/slog"

	"github.com/jackzampolin/aitrace/internal/providers"
)

// Recorder turns chat results into Call records and stores them.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder creates a new LLM call recorder. A nil store disables recording.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record captures an LLM call and returns the stored record.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) *Call {
	if r == nil || r.store == nil {
		return nil // No store configured, skip recording
	}

	call := FromChatResult(result, opts)
	if call == nil {
		return nil
	}
	r.store.Add(call)
	r.logger.Debug("recorded LLM call",
		"id", call.ID,
		"provider", call.Provider,
		"model", call.Model,
		"prompt_key", call.PromptKey,
		"success", call.Success,
		"latency_ms", call.LatencyMs)
	return call
}
