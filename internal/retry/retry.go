// Package retry provides the bounded retry controller for upload operations.
//
// The schedule is linear: the delay before attempt n+1 is base*n. Only
// retryable failures consume further attempts; terminal causes (validation,
// authentication, cancellation) propagate immediately.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatforge/attach/errors"
)

// Controller runs an operation up to a fixed number of attempts.
type Controller struct {
	attempts  int
	baseDelay time.Duration
	log       *slog.Logger

	// sleep is replaceable in tests to observe delays without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Controller. attempts is the total attempt budget including
// the first try; values below 1 are treated as 1.
func New(attempts int, baseDelay time.Duration, log *slog.Logger) *Controller {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		attempts:  attempts,
		baseDelay: baseDelay,
		log:       log,
		sleep:     wait,
	}
}

// Do runs op until it succeeds, fails terminally, or the attempt budget runs
// out. Exhaustion is reported as ErrRetryExhausted wrapping the last failure.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == c.attempts {
			break
		}

		delay := c.baseDelay * time.Duration(attempt)
		c.log.Debug("upload attempt failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return errors.NewError("retry", fmt.Errorf("%w: %w", errors.ErrCancelled, err))
		}
	}

	return errors.NewError("retry",
		fmt.Errorf("%w after %d attempts: %w", errors.ErrRetryExhausted, c.attempts, lastErr))
}

// SetSleep replaces the delay function. Intended for tests.
func (c *Controller) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
