// Package gate defers state-mutating operations until an asynchronous
// authentication check succeeds.
package gate

import (
	"context"
	"errors"
	"fmt"
)

// ErrDenied is wrapped by every error returned when the check fails.
var ErrDenied = errors.New("authentication required")

// Check reports whether the caller is authenticated. It may block until the
// answer is known and must honor ctx cancellation.
type Check func(ctx context.Context) error

// Guard wraps method so that it runs only after check succeeds.
//
// The returned function awaits check; on success it invokes method with the
// original argument and returns its error. On failure it returns an error
// wrapping both ErrDenied and the check's error, and method is never
// invoked. Calls are independent: concurrent gated calls each await their
// own check and are not serialized against each other.
func Guard[A any](check Check, method func(context.Context, A) error) func(context.Context, A) error {
	gated := GuardValue(check, func(ctx context.Context, arg A) (struct{}, error) {
		return struct{}{}, method(ctx, arg)
	})
	return func(ctx context.Context, arg A) error {
		_, err := gated(ctx, arg)
		return err
	}
}

// GuardValue is Guard for methods that produce a result.
func GuardValue[A, R any](check Check, method func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		var zero R
		if err := check(ctx); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrDenied, err)
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return method(ctx, arg)
	}
}

// IsDenied reports whether err came from a failed authentication check.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}
