package utils

import (
	"context"
	"errors"
	"time"
)

// CallWithTimeout runs fn in its own goroutine under a context derived from parent with
// timeout d (no extra deadline when d <= 0) and returns as soon as fn finishes or the context
// ends, so a callee that ignores its context cannot hold the caller.
//
// When the deadline set here expires, timeoutErr is returned. When parent itself is done,
// parent.Err() is returned. Otherwise fn's result is returned unchanged.
func CallWithTimeout[T any](parent context.Context, d time.Duration, timeoutErr error, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := parent.Err(); err != nil {
		return zero, err
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d > 0 {
		ctx, cancel = context.WithTimeout(parent, d)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if perr := parent.Err(); perr != nil {
				return zero, perr
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, timeoutErr
			}
		}
		return r.v, r.err
	case <-ctx.Done():
		if perr := parent.Err(); perr != nil {
			return zero, perr
		}
		return zero, timeoutErr
	}
}
