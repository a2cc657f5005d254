package invoicedoc

import (
	"context"
	"errors"
	"time"
)

// Await runs op with a deadline of timeout and reports whether it finished
// in time. Running out of time is not an error: the caller carries on with
// whatever state the window reached. Errors from op and cancellation of ctx
// are returned.
func Await(ctx context.Context, timeout time.Duration, op func(context.Context) error) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := op(opCtx)
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || opCtx.Err() != nil:
		return false, nil
	default:
		return false, err
	}
}

// settle waits for d unless ctx ends first.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
