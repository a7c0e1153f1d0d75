package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
)

// Policy retries an operation with exponential backoff, up to MaxAttempts calls in total.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int
	OnRetry         func(err error, next time.Duration)
}

func Default() Policy {
	return Policy{
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxAttempts:     DefaultMaxAttempts,
	}
}

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a permanent error, the attempts run out or ctx is done.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	if p.InitialInterval <= 0 {
		return errors.New("initial interval must be > 0")
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.MaxElapsedTime = 0

	calls, permanent := 0, false
	op := func() error {
		calls++
		err := fn()
		var pe *backoff.PermanentError
		if errors.As(err, &pe) {
			permanent = true
		}
		return err
	}
	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx),
		func(err error, next time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(err, next)
			}
		})
	if err == nil {
		return nil
	}
	if permanent || calls < attempts || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", calls, err)
}
