package providers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: "test"},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("default response", func(t *testing.T) {
		c := NewMockClient()
		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != MockResponse {
			t.Errorf("Content = %q, want MockResponse", result.Content)
		}
	})

	t.Run("records last request", func(t *testing.T) {
		c := NewMockClient()
		if c.LastRequest() != nil {
			t.Fatal("LastRequest should be nil before any call")
		}

		_, _ = c.Chat(context.Background(), &ChatRequest{
			Model:       "qwen-plus",
			Temperature: 0.2,
			Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		})

		last := c.LastRequest()
		if last == nil {
			t.Fatal("LastRequest() = nil")
		}
		if last.Model != "qwen-plus" || last.Temperature != 0.2 || len(last.Messages) != 2 {
			t.Errorf("LastRequest() = %+v", last)
		}

		c.Reset()
		if c.LastRequest() != nil || c.RequestCount() != 0 {
			t.Error("Reset() should clear state")
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if result.ErrorType != "mock_failure" {
			t.Errorf("ErrorType = %q, want mock_failure", result.ErrorType)
		}
	})

	t.Run("custom error", func(t *testing.T) {
		want := &RateLimitError{Message: "slow down", RetryAfter: 2 * time.Second}
		c := NewMockClient()
		c.ShouldFail = true
		c.Err = want

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if !errors.Is(err, want) {
			t.Fatalf("err = %v, want %v", err, want)
		}
		if result.RetryAfter != 2*time.Second {
			t.Errorf("RetryAfter = %v, want 2s", result.RetryAfter)
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		// First two should succeed
		_, err := c.Chat(context.Background(), &ChatRequest{})
		if err != nil {
			t.Fatalf("first request should succeed: %v", err)
		}
		_, err = c.Chat(context.Background(), &ChatRequest{})
		if err != nil {
			t.Fatalf("second request should succeed: %v", err)
		}

		// Third should fail
		_, err = c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("third request should fail")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		result, err := c.Chat(ctx, &ChatRequest{})
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result.ErrorType != "context_cancelled" {
			t.Errorf("ErrorType = %q, want context_cancelled", result.ErrorType)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial requests", func(t *testing.T) {
		limiter := NewRateLimiter(600) // 10 per second

		// Should allow 5 requests quickly
		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		elapsed := time.Since(start)

		// Should complete quickly since we have burst capacity
		if elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("try consume", func(t *testing.T) {
		limiter := NewRateLimiter(60)

		// Should succeed initially
		if !limiter.TryConsume() {
			t.Error("first TryConsume should succeed")
		}
	})

	t.Run("default rate", func(t *testing.T) {
		limiter := NewRateLimiter(0)
		if got := limiter.RequestsPerMinute(); got != DefaultRequestsPerMinute {
			t.Errorf("RequestsPerMinute() = %d, want %d", got, DefaultRequestsPerMinute)
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60)

		status := limiter.Status()

		if status.TokensLimit != 60 {
			t.Errorf("TokensLimit = %d, want 60", status.TokensLimit)
		}
		if status.TokensAvailable <= 0 {
			t.Error("expected positive tokens available")
		}
	})

	t.Run("record 429", func(t *testing.T) {
		limiter := NewRateLimiter(60)

		limiter.Record429(time.Second)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if limiter.TryConsume() {
			t.Error("TryConsume should fail while blocked by Retry-After")
		}
	})

	t.Run("record 429 without retry-after", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429(0)
		if !limiter.TryConsume() {
			t.Error("TryConsume should succeed when no Retry-After was given")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		// Create limiter with very low rate
		limiter := NewRateLimiter(1) // 1 per minute

		// Consume the one allowed token
		limiter.Wait(context.Background())

		// Cancel context immediately
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := limiter.Wait(ctx)
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(6000) // 100 per second

		var wg sync.WaitGroup
		var failures atomic.Int32

		// Fire 10 concurrent requests
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}

		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}

		status := limiter.Status()
		if status.TotalConsumed != 10 {
			t.Errorf("TotalConsumed = %d, want 10", status.TotalConsumed)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"0", 0},
		{"-3", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("parseRetryAfter(http-date) = %v, want within (0, 1m]", got)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"empty", errEmptyResponse, "empty_response"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"cancelled", context.Canceled, "context_cancelled"},
		{"rate limited", &RateLimitError{Message: "429"}, "rate_limited"},
		{"other", errors.New("boom"), "http_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorType(tt.err); got != tt.want {
				t.Errorf("errorType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 1 || rest[0].Content != "u" {
		t.Errorf("rest = %+v", rest)
	}
}
