package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", config.MaxRetries)
	}

	if config.BaseDelay != time.Second {
		t.Errorf("Expected BaseDelay=1s, got %v", config.BaseDelay)
	}

	if config.MaxDelay != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", config.MaxDelay)
	}

	if config.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %f", config.Multiplier)
	}

	if !config.Jitter {
		t.Error("Expected Jitter=true")
	}

	if config.RetryableOnly {
		t.Error("Expected RetryableOnly=false")
	}
}

func TestFetchConfig(t *testing.T) {
	config := FetchConfig()

	if config.MaxRetries != 2 {
		t.Errorf("Expected MaxRetries=2, got %d", config.MaxRetries)
	}

	if !config.RetryableOnly {
		t.Error("Expected RetryableOnly=true")
	}
}

func TestWithBackoff_Success(t *testing.T) {
	config := Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
	}

	calls := 0
	result := WithBackoff(context.Background(), config, func() error {
		calls++
		return nil
	}, zerolog.Nop())

	if !result.Success {
		t.Error("Expected success")
	}

	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithBackoff_SuccessAfterRetries(t *testing.T) {
	config := Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
	}

	calls := 0
	result := WithBackoff(context.Background(), config, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	}, zerolog.Nop())

	if !result.Success {
		t.Error("Expected eventual success")
	}

	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
}

func TestWithBackoff_Exhausted(t *testing.T) {
	config := Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
	}

	opErr := errors.New("persistent failure")
	calls := 0
	result := WithBackoff(context.Background(), config, func() error {
		calls++
		return opErr
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected failure")
	}

	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}

	if !errors.Is(result.LastError, opErr) {
		t.Errorf("Expected last error to be the operation error, got %v", result.LastError)
	}
}

func TestWithBackoff_RetryableOnly(t *testing.T) {
	config := Config{
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		Multiplier:    2.0,
		RetryableOnly: true,
	}

	calls := 0
	result := WithBackoff(context.Background(), config, func() error {
		calls++
		return errors.New("unexpected status 404")
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected failure")
	}

	if calls != 1 {
		t.Errorf("Expected no retries for non-retryable error, got %d calls", calls)
	}
}

func TestWithBackoff_ContextCancelled(t *testing.T) {
	config := Config{
		MaxRetries: 5,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := WithBackoff(ctx, config, func() error {
		calls++
		return errors.New("timeout")
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected failure after cancellation")
	}

	if !errors.Is(result.LastError, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", result.LastError)
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("unexpected status 503 fetching page"), true},
		{errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{errors.New("unexpected status 404 fetching page"), false},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), true},
		{errors.New("no entry block found in document"), false},
	}

	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.retryable {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}
