package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingSleep captures requested delays without sleeping.
type recordingSleep struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func serverClass(error) ErrorClass { return ErrorClassServer }
func clientClass(error) ErrorClass { return ErrorClassClient }

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", config.MaxRetries)
	}
	if config.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", config.BaseDelay)
	}
	if config.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", config.MaxDelay)
	}
	if config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", config.Multiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	sleeper := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper.sleep, zerolog.Nop(), serverClass, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no sleeps, got %d", len(sleeper.delays))
	}
}

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	// Fails max_retries times, then succeeds: the page must come back
	// normally after exactly max_retries sleeps.
	config := RetryConfig{MaxRetries: 5, BaseDelay: 1 * time.Second, MaxDelay: 30 * time.Second, Multiplier: 2.0}
	sleeper := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), config, sleeper.sleep, zerolog.Nop(), serverClass, func() error {
		callCount++
		if callCount <= config.MaxRetries {
			return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer, Message: "boom"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if callCount != config.MaxRetries+1 {
		t.Errorf("Expected %d calls, got %d", config.MaxRetries+1, callCount)
	}
	if len(sleeper.delays) != config.MaxRetries {
		t.Fatalf("Expected %d sleeps, got %d", config.MaxRetries, len(sleeper.delays))
	}

	// Delays grow exponentially (jitter is ±20%, doubling dominates it)
	// until the cap; every delay stays within the jitter window of the
	// capped nominal backoff.
	nominal := config.BaseDelay
	for i, delay := range sleeper.delays {
		lo := time.Duration(float64(nominal) * 0.8)
		hi := time.Duration(float64(nominal) * 1.2)
		if delay < lo || delay > hi {
			t.Errorf("delay[%d] = %v, want within [%v, %v]", i, delay, lo, hi)
		}
		if i > 0 && nominal < config.MaxDelay && delay <= sleeper.delays[i-1] {
			t.Errorf("delay[%d] = %v not greater than delay[%d] = %v", i, delay, i-1, sleeper.delays[i-1])
		}
		nominal = time.Duration(float64(nominal) * config.Multiplier)
		if nominal > config.MaxDelay {
			nominal = config.MaxDelay
		}
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}
	sleeper := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), config, sleeper.sleep, zerolog.Nop(), serverClass, func() error {
		callCount++
		return &APIError{StatusCode: 502, ErrorClass: ErrorClassServer, Message: "bad gateway"}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != config.MaxRetries+1 {
		t.Errorf("Expected %d calls, got %d", config.MaxRetries+1, callCount)
	}
}

func TestRetryWithBackoff_FatalNoRetry(t *testing.T) {
	// 401-style errors abort immediately with zero retries.
	sleeper := &recordingSleep{}
	callCount := 0
	fatal := &APIError{StatusCode: 401, ErrorClass: ErrorClassClient, Message: "unauthorized"}

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper.sleep, zerolog.Nop(), clientClass, func() error {
		callCount++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Errorf("Expected the fatal error back, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected zero retries, got %d sleeps", len(sleeper.delays))
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	sleeper := &recordingSleep{err: context.Canceled}
	callCount := 0

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper.sleep, zerolog.Nop(), serverClass, func() error {
		callCount++
		return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer, Message: "boom"}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_CapAtMaxDelay(t *testing.T) {
	config := RetryConfig{MaxRetries: 6, BaseDelay: 1 * time.Second, MaxDelay: 4 * time.Second, Multiplier: 2.0}
	sleeper := &recordingSleep{}
	callCount := 0

	err := retryWithBackoff(context.Background(), config, sleeper.sleep, zerolog.Nop(), serverClass, func() error {
		callCount++
		return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer, Message: "boom"}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}
	// Backoffs: 1s, 2s, 4s, then capped at 4s.
	maxAllowed := time.Duration(float64(config.MaxDelay) * 1.2)
	for i, delay := range sleeper.delays {
		if delay > maxAllowed {
			t.Errorf("delay[%d] = %v exceeds cap window %v", i, delay, maxAllowed)
		}
	}
}
