package llmcall

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity is the number of calls kept when no capacity is configured.
const DefaultCapacity = 200

// Store keeps the most recent LLM call records in memory.
// Once full, the oldest record is evicted for each new one.
type Store struct {
	mu       sync.RWMutex
	capacity int
	calls    []Call // oldest first
}

// NewStore creates a new LLMCall store holding up to capacity records.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Counts summarizes the records currently held.
type Counts struct {
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	ByProvider  map[string]int `json:"by_provider"`
	ByPromptKey map[string]int `json:"by_prompt_key"`
	Capacity    int            `json:"capacity"`
}

// Add stores a call, evicting the oldest record when at capacity.
func (s *Store) Add(call *Call) {
	if call == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, *call)
	s.trim()
}

// SetCapacity changes how many records are kept, dropping the oldest if needed.
func (s *Store) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacity = capacity
	s.trim()
}

// Capacity returns the configured maximum number of records.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// trim must be called with the lock held.
func (s *Store) trim() {
	if over := len(s.calls) - s.capacity; over > 0 {
		kept := make([]Call, s.capacity)
		copy(kept, s.calls[over:])
		s.calls = kept
	}
}

// Get retrieves a single LLM call by ID.
// It returns nil without error when no such call is held.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].ID == id {
			call := s.calls[i]
			return &call, nil
		}
	}
	return nil, nil
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls := make([]Call, 0)
	skipped := 0
	for i := len(s.calls) - 1; i >= 0; i-- {
		c := s.calls[i]
		if !filter.matches(&c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		calls = append(calls, c)
		if filter.Limit > 0 && len(calls) >= filter.Limit {
			break
		}
	}
	return calls, nil
}

// Counts returns totals by outcome, provider and prompt key.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := Counts{
		Total:       len(s.calls),
		ByProvider:  make(map[string]int),
		ByPromptKey: make(map[string]int),
		Capacity:    s.capacity,
	}
	for _, c := range s.calls {
		if c.Success {
			counts.Succeeded++
		} else {
			counts.Failed++
		}
		counts.ByProvider[c.Provider]++
		counts.ByPromptKey[c.PromptKey]++
	}
	return counts, nil
}

func (f QueryFilter) matches(c *Call) bool {
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
