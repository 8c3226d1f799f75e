package llm

import (
	"context"
	"math/rand"
	"time"

	"github.com/orito-ai/orito-core/pkg/models"
)

// CompleteWithRetry drives c.Complete through spec §6.1's retry policy:
// up to MaxAttempts tries, exponential backoff with jitter between them.
// It returns *Error once attempts are exhausted.
func CompleteWithRetry(ctx context.Context, c Completer, messages []models.Message, opts Options) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		res, err := c.Complete(ctx, messages, opts)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == MaxAttempts {
			break
		}
		delay := RetryBackoff(attempt, rand.Float64())
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return Result{}, &Error{Attempts: MaxAttempts, LastError: lastErr}
}
