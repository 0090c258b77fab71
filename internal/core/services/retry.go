package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/logger"
)

// retryAttempts is the number of tries for a provider call.
const retryAttempts = 3

// retryBackoff is the delay before the second attempt; it doubles after
// every further failure.
var retryBackoff = 200 * time.Millisecond

// withRetry calls fn until it succeeds, the attempts are exhausted or ctx
// ends. Exhausted attempts return an error wrapping domain.ErrProvider
// and the last failure.
func withRetry[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := retryBackoff

	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return zero, err
		}
		lastErr = err
		logger.Debug("%s failed (attempt %d/%d): %v", op, attempt, retryAttempts, err)

		if attempt == retryAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return zero, fmt.Errorf("%w: %s: %w", domain.ErrProvider, op, lastErr)
}
