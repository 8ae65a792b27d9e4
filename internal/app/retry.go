package app

import (
	"context"
	"time"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// Operation is a single fallible unit of work (resolve metadata, download one
// item)
type Operation func(ctx context.Context) error

// AttemptObserver is invoked before each retry sleep so the caller can log
// "retrying in Ns". attempt is the zero-based attempt that just failed.
type AttemptObserver func(attempt int, delay time.Duration, err error)

// Outcome is the terminal result of a retried operation
type Outcome struct {
	// Err is nil on success; on failure it is the last attempt's error
	Err error
	// Kind classifies Err; meaningful only when Err is non-nil
	Kind domain.FailureKind
	// Attempts is how many attempts actually ran
	Attempts int
}

// Cancelled reports whether the operation stopped because of cancellation
func (o Outcome) Cancelled() bool {
	return o.Kind == domain.FailureCancelled
}

// RetryExecutor runs an operation up to MaxAttempts times with backoff
// delays between attempts. Non-retryable failures (DRM, private content,
// auth) abort immediately. Cancellation is checked before each attempt and
// before each sleep and never consumes a retry.
type RetryExecutor struct {
	MaxAttempts int
	Backoff     Backoff
	Observer    AttemptObserver
}

// NewRetryExecutor creates an executor with the engine defaults
func NewRetryExecutor(maxAttempts int, backoff Backoff) *RetryExecutor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryExecutor{MaxAttempts: maxAttempts, Backoff: backoff}
}

// Execute runs op until it succeeds, fails terminally, or ctx ends. A
// context cancelled by the user yields a Cancelled outcome; a context that
// hit the per-item deadline yields a terminal Timeout failure.
func (e *RetryExecutor) Execute(ctx context.Context, op Operation) Outcome {
	var lastErr error
	var lastKind domain.FailureKind

	for attempt := 0; attempt < e.MaxAttempts; attempt++ {
		if out, done := e.contextOutcome(ctx, attempt); done {
			return out
		}

		err := op(ctx)
		if err == nil {
			return Outcome{Attempts: attempt + 1}
		}
		if out, done := e.contextOutcome(ctx, attempt+1); done {
			return out
		}

		lastErr = err
		lastKind = domain.ClassifyError(err)
		if !lastKind.Retryable() {
			return Outcome{Err: lastErr, Kind: lastKind, Attempts: attempt + 1}
		}
		if attempt == e.MaxAttempts-1 {
			break
		}

		delay := e.Backoff.Delay(attempt)
		if e.Observer != nil {
			e.Observer(attempt, delay, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			out, _ := e.contextOutcome(ctx, attempt+1)
			return out
		}
	}

	return Outcome{Err: lastErr, Kind: lastKind, Attempts: e.MaxAttempts}
}

// contextOutcome translates a finished context into a terminal outcome
func (e *RetryExecutor) contextOutcome(ctx context.Context, attempts int) (Outcome, bool) {
	switch ctx.Err() {
	case nil:
		return Outcome{}, false
	case context.DeadlineExceeded:
		return Outcome{Err: ctx.Err(), Kind: domain.FailureTimeout, Attempts: attempts}, true
	default:
		return Outcome{Err: ctx.Err(), Kind: domain.FailureCancelled, Attempts: attempts}, true
	}
}
