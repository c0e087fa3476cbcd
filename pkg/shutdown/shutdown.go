package shutdown

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// WithSignals returns a context cancelled on SIGINT or SIGTERM.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Graceful runs stop with a fresh deadline of d. If stop does not return in
// time, force is called and the deadline error is returned.
func Graceful(d time.Duration, stop func(ctx context.Context) error, force func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- stop(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if force != nil {
			force()
		}
		return ctx.Err()
	}
}
