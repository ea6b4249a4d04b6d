package util

import (
	"context"
	"errors"
)

// RetryErr calls fn up to maxTries times until it returns nil.
// If maxTries <= 0, it defaults to 1. Returns the last error if all
// attempts fail.
func RetryErr(maxTries int, fn func() error) error {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

// RetryWithContext calls fn up to maxTries times until it succeeds or ctx
// is done. Cancellation and deadline errors abort immediately instead of
// burning remaining attempts.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// Retry2WithContext is RetryWithContext for functions returning two results.
func Retry2WithContext[A, B any](ctx context.Context, maxTries int, fn func(context.Context) (A, B, error)) (A, B, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zeroA A
	var zeroB B
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zeroA, zeroB, ctx.Err()
		}
		a, b, err := fn(ctx)
		if err == nil {
			return a, b, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zeroA, zeroB, err
		}
		lastErr = err
	}
	return zeroA, zeroB, lastErr
}
