// Package schedule runs all pending manifest chunks through the
// transcription collaborator with a bounded worker pool, retrying transient
// failures with exponential backoff and persisting the manifest after every
// terminal transition so an interrupted run can resume where it left off.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/manifest"
	"github.com/alnah/go-scribe/internal/transcribe"
)

// Default retry parameters, matching config defaults.
const (
	defaultMaxRetries  = 3
	defaultBackoffBase = 800 * time.Millisecond
)

// PersistFunc saves the manifest to its path. Injected for testing.
type PersistFunc func(m *manifest.Manifest, path string) error

// ProgressFunc reports completed chunks out of the total scheduled.
type ProgressFunc func(done, total int)

// Scheduler dispatches pending chunks to a pool of transcription workers.
// Each chunk record is owned by exactly one worker for its lifetime; the
// only shared step is the manifest save, serialized by a mutex.
type Scheduler struct {
	transcriber transcribe.Transcriber
	parallel    int
	maxRetries  int
	backoffBase time.Duration
	sleep       apierr.SleepFunc
	persist     PersistFunc
	progress    ProgressFunc
	now         func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithParallel sets the worker pool size, clamped to [MinParallel, MaxParallel].
func WithParallel(n int) Option {
	return func(s *Scheduler) {
		if n < config.MinParallel {
			n = config.MinParallel
		}
		if n > config.MaxParallel {
			n = config.MaxParallel
		}
		s.parallel = n
	}
}

// WithMaxRetries sets the maximum number of retry attempts per chunk.
func WithMaxRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoffBase sets the base delay for exponential backoff.
func WithBackoffBase(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.backoffBase = d
		}
	}
}

// WithSleep sets the backoff wait function (for testing).
func WithSleep(fn apierr.SleepFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithPersistFunc sets the manifest persistence function (for testing).
func WithPersistFunc(fn PersistFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.persist = fn
		}
	}
}

// WithProgress sets a completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scheduler) { s.progress = fn }
}

// WithClock sets the time source used for latency measurement (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scheduler for the given transcriber.
func New(t transcribe.Transcriber, opts ...Option) *Scheduler {
	s := &Scheduler{
		transcriber: t,
		parallel:    config.MinParallel,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		persist:     (*manifest.Manifest).Save,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every pending chunk in the manifest to a terminal state,
// mutating m in place and persisting it to manifestPath after each
// completion. Chunks already done or in error are left untouched, which
// makes re-running against a partially completed manifest incremental.
//
// Per-chunk failures never abort the run; only context cancellation or a
// failed manifest save does.
func (s *Scheduler) Run(ctx context.Context, m *manifest.Manifest, manifestPath string) error {
	req := transcribe.Request{
		Model:          m.Model,
		ResponseFormat: m.ResponseFormat,
		Prompt:         m.Prompt,
	}

	pending := m.Pending()
	if len(pending) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		done int
	)

	// Semaphore channel for concurrency control.
	sem := make(chan struct{}, s.parallel)

	g, ctx := errgroup.WithContext(ctx)

	for _, chunk := range pending {
		chunk := chunk
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			text, latency, attempts, err := s.transcribeChunk(ctx, chunk.File, req)
			if err != nil && ctx.Err() != nil {
				// Interrupted mid-flight: the chunk stays pending for the next run.
				return ctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()

			chunk.Retries = attempts - 1
			if err != nil {
				chunk.MarkError(err.Error())
			} else {
				chunk.MarkDone(text, latency)
			}

			// Full-manifest rewrite inside the critical section: every save
			// reflects the latest terminal state of all completed chunks.
			if perr := s.persist(m, manifestPath); perr != nil {
				return fmt.Errorf("persist manifest after chunk %d: %w", chunk.Index, perr)
			}

			done++
			if s.progress != nil {
				s.progress(done, len(pending))
			}
			return nil
		})
	}

	return g.Wait()
}

// transcribeChunk performs one chunk's transcription with retry.
// Transient errors are retried up to maxRetries with exponential backoff
// (nth sleep = backoffBase * 2^n); anything else is terminal immediately.
// Returns the number of attempts made.
func (s *Scheduler) transcribeChunk(ctx context.Context, audioPath string, req transcribe.Request) (string, time.Duration, int, error) {
	cfg := apierr.RetryConfig{
		MaxRetries: s.maxRetries,
		BaseDelay:  s.backoffBase,
		// Uncapped doubling across the full retry budget.
		MaxDelay: s.backoffBase * (1 << uint(s.maxRetries)), // #nosec G115 -- maxRetries is bounded by config
		Sleep:    s.sleep,
	}

	attempts := 0
	var latency time.Duration

	text, err := apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		attempts++
		start := s.now()
		text, err := s.transcriber.Transcribe(ctx, audioPath, req)
		latency = s.now().Sub(start)
		return text, err
	}, apierr.IsTransient)

	return text, latency, attempts, err
}
