// AngelaMos | 2026
// dispatcher.go

package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher sends reset mail off the request path. Each send gets its own
// deadline and outlives the request that triggered it.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(
	sender Sender,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

func (d *Dispatcher) NotifyPasswordReset(ctx context.Context, email, token string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "reset email dropped, dispatcher closed", "to", email)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	go func() {
		defer d.wg.Done()
		defer cancel()

		start := time.Now()
		if err := d.sender.SendResetEmail(sendCtx, email, token); err != nil {
			d.logger.ErrorContext(sendCtx, "reset email failed",
				"to", email,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return
		}

		d.logger.DebugContext(sendCtx, "reset email sent",
			"to", email,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()
}

// Close stops accepting work and waits for in-flight sends or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
