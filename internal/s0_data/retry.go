package s0_data

import (
	"context"
	"math"
	"time"

	"github.com/wonny/rsqm/internal/contracts"
)

// RetryPolicy retries transient fetch failures with backoff.
// Permanent failures (contracts.FetchPermanent) return immediately.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration // 0 = no cap
	Multiplier   float64       // 1 = fixed delay
}

// DefaultRetryPolicy returns 3 attempts with a fixed 2s wait
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   1,
	}
}

// Delay returns the wait before attempt n+1 (n is 1-based)
func (p RetryPolicy) Delay(n int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(n-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
// It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}

		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !contracts.IsTransient(err) || attempt == maxAttempts {
			return attempt, err
		}

		// 대기 중 취소되면 즉시 종료
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return maxAttempts, err
}
