// Package retry provides a generic retryable-operation wrapper with a
// bounded attempt count and increasing delay between attempts. It is used
// for rate-limited external calls such as the company-registry lookup.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	// Multiplier grows the delay after each failed attempt.
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultPolicy returns a policy suitable for rate-limited HTTP APIs.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps an error so that Do stops retrying and returns it
// immediately. Use it for failures that cannot succeed on retry, such as
// not-found responses.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, a permanent error is returned, the attempt
// budget is exhausted, or the context is cancelled. The last error is
// returned when all attempts fail.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
