// Package clock holds the time dependencies that tests need to replace:
// the simulated latency of login and of the assistant typing, and the
// wall clock used for timestamps.
package clock

import (
	"context"
	"time"
)

// Delay blocks for d or until ctx is done.
type Delay func(ctx context.Context, d time.Duration) error

// Now returns the current time.
type Now func() time.Time

// Sleep is the production Delay.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Instant returns immediately. Used by tests.
func Instant(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Fixed returns a Now that always reports t.
func Fixed(t time.Time) Now {
	return func() time.Time { return t }
}
