package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// Retry decorates a Client with exponential backoff and jitter.
//
// Only requests marked Idempotent are retried; everything else is delivered
// at most once, so a purchase or capture without a caller-supplied
// idempotency key can never be silently doubled.
type Retry struct {
	inner      Client
	baseDelay  time.Duration
	maxRetries int
}

func NewRetry(inner Client, baseDelay time.Duration, maxRetries int) *Retry {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Retry{
		inner:      inner,
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
	}
}

func (r *Retry) Do(ctx context.Context, req Request) (*Reply, error) {
	if !req.Idempotent {
		return r.inner.Do(ctx, req)
	}

	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		reply, err := r.inner.Do(ctx, req)
		if err == nil && !retryableStatus(reply.StatusCode) {
			return reply, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("provider returned status %d", reply.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

// backoff doubles the base delay per attempt and adds up to a second of
// jitter.
func (r *Retry) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
	return base + jitter
}
