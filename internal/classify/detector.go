package classify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackzampolin/aitrace/internal/gateway"
)

// Config tunes the detection call.
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "qwen-plus",
		Temperature: 0.2,
		Timeout:     15 * time.Second,
	}
}

// Detector classifies text through a model gateway.
type Detector struct {
	gw gateway.Gateway

	mu  sync.RWMutex
	cfg Config
}

// NewDetector creates a detector that sends prompts through gw.
func NewDetector(gw gateway.Gateway, cfg Config) *Detector {
	return &Detector{gw: gw, cfg: cfg}
}

// SetConfig replaces the detection settings; used on config reload.
func (d *Detector) SetConfig(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

// Config returns the current detection settings.
func (d *Detector) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Detect asks the model to classify text and normalizes its answer.
// Gateway failures are returned as errors; malformed model output is not
// an error and produces the fallback record.
func (d *Detector) Detect(ctx context.Context, text string) (Record, error) {
	cfg := d.Config()
	resp, err := d.gw.Generate(ctx, gateway.Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   UserPrompt(text),
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		Timeout:      cfg.Timeout,
		PromptKey:    PromptKey,
	})
	if err != nil {
		return Record{}, fmt.Errorf("detect: %w", err)
	}
	return Normalize(resp.Text), nil
}
