package apierr_test

// Coverage Notes:
// - Tests use 1ms base delays so the retry schedule completes quickly.
// - Attempt counting is the observable contract: MaxRetries transient
//   failures means MaxRetries+1 calls; a permanent failure means one call.
// - The backoff schedule itself (nth sleep = BaseDelay*2^n, capped at
//   MaxDelay) is pinned through an injected Sleep recording the requested
//   delays, so no wall-clock timing is measured.
// - Context cancellation during backoff is tested with an already-canceled
//   context so no timing assumptions are needed.

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alnah/go-scribe/internal/apierr"
)

var errTransient = errors.New("rate_limit_exceeded")
var errPermanent = errors.New("invalid input")

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_SuccessFirstAttempt
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond},
		func() (string, error) {
			calls++
			return "ok", nil
		},
		apierr.IsTransient,
	)

	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v, want nil", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_TransientExhaustsRetries
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_TransientExhaustsRetries(t *testing.T) {
	t.Parallel()

	const maxRetries = 3

	calls := 0
	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond},
		func() (string, error) {
			calls++
			return "", errTransient
		},
		apierr.IsTransient,
	)

	if err == nil {
		t.Fatal("RetryWithBackoff() error = nil, want exhaustion error")
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("final error does not wrap the last attempt error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_PermanentFailsImmediately
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_PermanentFailsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond},
		func() (string, error) {
			calls++
			return "", errPermanent
		},
		apierr.IsTransient,
	)

	if !errors.Is(err, errPermanent) {
		t.Fatalf("RetryWithBackoff() error = %v, want %v", err, errPermanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for permanent errors)", calls)
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_SuccessAfterRetries
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond},
		func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		},
		apierr.IsTransient,
	)

	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v, want nil", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_SleepSchedule
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_SleepSchedule(t *testing.T) {
	t.Parallel()

	const base = 100 * time.Millisecond

	var slept []time.Duration
	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  base,
			MaxDelay:   time.Hour,
			Sleep: func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			},
		},
		func() (string, error) { return "", errTransient },
		apierr.IsTransient,
	)

	if err == nil {
		t.Fatal("RetryWithBackoff() error = nil, want exhaustion error")
	}
	want := []time.Duration{base, 2 * base, 4 * base}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestRetryWithBackoff_SleepScheduleCappedAtMaxDelay(t *testing.T) {
	t.Parallel()

	const (
		base     = 100 * time.Millisecond
		maxDelay = 250 * time.Millisecond
	)

	var slept []time.Duration
	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{
			MaxRetries: 4,
			BaseDelay:  base,
			MaxDelay:   maxDelay,
			Sleep: func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			},
		},
		func() (string, error) { return "", errTransient },
		apierr.IsTransient,
	)

	if err == nil {
		t.Fatal("RetryWithBackoff() error = nil, want exhaustion error")
	}
	want := []time.Duration{base, 2 * base, maxDelay, maxDelay}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_CanceledContextStopsRetrying
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_CanceledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := apierr.RetryWithBackoff(ctx,
		apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Hour},
		func() (string, error) {
			calls++
			return "", errTransient
		},
		apierr.IsTransient,
	)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithBackoff() error = %v, want context.Canceled", err)
	}
	// The first attempt runs before any backoff wait.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_ZeroRetriesSingleAttempt
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_ZeroRetriesSingleAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := apierr.RetryWithBackoff(context.Background(),
		apierr.RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond},
		func() (string, error) {
			calls++
			return "", errTransient
		},
		apierr.IsTransient,
	)

	if err == nil {
		t.Fatal("RetryWithBackoff() error = nil, want exhaustion error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
