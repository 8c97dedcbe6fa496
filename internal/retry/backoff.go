package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries    int           `json:"max_retries"`    // Maximum number of retry attempts (default: 3)
	BaseDelay     time.Duration `json:"base_delay"`     // Base delay between retries (default: 1s)
	MaxDelay      time.Duration `json:"max_delay"`      // Maximum delay between retries (default: 30s)
	Multiplier    float64       `json:"multiplier"`     // Exponential backoff multiplier (default: 2.0)
	Jitter        bool          `json:"jitter"`         // Add random jitter to prevent thundering herd (default: true)
	RetryableOnly bool          `json:"retryable_only"` // Stop immediately on errors IsRetryableError rejects
	LogRetries    bool          `json:"log_retries"`    // Whether to log retry attempts (default: true)
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int           `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration `json:"total_duration"` // Total time spent on all attempts
	LastError     error         `json:"-"`              // Last error encountered
	Success       bool          `json:"success"`        // Whether the operation eventually succeeded
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		LogRetries: true,
	}
}

// FetchConfig returns the retry configuration for scrape fetches: three
// total attempts, short delays, and retries only on transient network
// failures.
func FetchConfig() Config {
	return Config{
		MaxRetries:    2,
		BaseDelay:     250 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		Jitter:        true,
		RetryableOnly: true,
		LogRetries:    true,
	}
}

// WithBackoff executes an operation with exponential backoff retry logic
func WithBackoff(ctx context.Context, config Config, operation func() error, logger zerolog.Logger) Result {
	startTime := time.Now()

	result := Result{}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && attempt > 0 {
				logger.Debug().
					Int("attempts", result.Attempts).
					Dur("total_duration", result.TotalDuration).
					Msg("operation succeeded after retries")
			}
			return result
		}

		result.LastError = err

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Debug().
					Int("attempts", result.Attempts).
					Dur("total_duration", result.TotalDuration).
					Err(err).
					Msg("operation failed, retries exhausted")
			}
			return result
		}

		if config.RetryableOnly && !IsRetryableError(err) {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				logger.Debug().Err(err).Msg("operation failed, error not retryable")
			}
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}

		delay := calculateDelay(config, attempt)
		if config.LogRetries {
			logger.Debug().
				Int("attempt", attempt+1).
				Int("max_attempts", config.MaxRetries+1).
				Dur("delay", delay).
				Err(err).
				Msg("operation failed, retrying")
		}

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		case <-time.After(delay):
			// Continue to next attempt
		}
	}

	// This should never be reached due to the loop logic above
	result.TotalDuration = time.Since(startTime)
	return result
}

// calculateDelay calculates the delay for the next retry attempt using exponential backoff
func calculateDelay(config Config, attempt int) time.Duration {
	// Calculate exponential backoff: baseDelay * multiplier^attempt
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	// Apply maximum delay limit
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	// Add jitter to prevent thundering herd problem
	if config.Jitter {
		// Add up to 10% random jitter
		jitterRange := delay * 0.1
		jitter := (rand.Float64() - 0.5) * 2 * jitterRange // Random value between -jitterRange and +jitterRange
		delay += jitter

		// Ensure delay is not negative
		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// IsRetryableError determines if an error is retryable
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Network-related errors that are typically retryable
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"broken pipe",
		"context deadline exceeded",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}
