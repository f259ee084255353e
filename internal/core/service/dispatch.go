// Package service provides domain services for OVE core.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCallTimeout bounds every outbound application or instance call.
const DefaultCallTimeout = 10 * time.Second

// Observer receives notifications about best-effort background work.
type Observer interface {
	// RemoteCallFailed is invoked once per failed outbound call.
	RemoteCallFailed(op string)
}

type nopObserver struct{}

func (nopObserver) RemoteCallFailed(string) {}

// dispatcher runs outbound calls in the background so that local state
// commits before remote propagation is attempted. Failures are logged and
// otherwise swallowed.
type dispatcher struct {
	wg       sync.WaitGroup
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// Go runs fn on its own goroutine with a per-call timeout.
func (d *dispatcher) Go(op string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.observer.RemoteCallFailed(op)
			d.logger.Warn("remote call failed", "op", op, "error", err)
		}
	}()
}

// Wait blocks until every dispatched call has returned.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}
