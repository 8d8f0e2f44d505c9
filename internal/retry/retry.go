package retry

import (
	"context"
	"time"
)

type Operation func(attempt int) error

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a bounded linear backoff: the wait after failed attempt n is
// BaseDelay * n. There is no wait after the last attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	Sleep     SleepFunc
}

func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Do runs op until it succeeds or the attempts are used up, returning the
// last error. Attempts below one are treated as one.
func (p Policy) Do(ctx context.Context, op Operation) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func Do(ctx context.Context, attempts int, baseDelay time.Duration, op Operation) error {
	return Policy{Attempts: attempts, BaseDelay: baseDelay}.Do(ctx, op)
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
