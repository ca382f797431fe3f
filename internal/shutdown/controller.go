// Package shutdown provides the run-wide stop flag.
//
// The Controller is tripped at most once, normally by an interrupt signal.
// Tripping it stops all new scheduling while requests that were already
// issued keep running until they finish or time out. A second signal
// escalates to cancelling the run context.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Controller is a write-once stop flag, safe for concurrent use.
type Controller struct {
	tripped atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// New creates an untripped Controller.
func New() *Controller {
	return &Controller{done: make(chan struct{})}
}

// Trip sets the flag. Calls after the first are no-ops.
func (c *Controller) Trip() {
	c.once.Do(func() {
		c.tripped.Store(true)
		close(c.done)
	})
}

// Tripped reports whether the flag has been set.
func (c *Controller) Tripped() bool {
	return c.tripped.Load()
}

// Done returns a channel that is closed when the flag is set.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Watch relays signals to the controller until ctx is done.
// The first signal trips the flag; the second calls cancel so that
// in-flight requests are aborted too. The returned function stops watching.
func (c *Controller) Watch(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, signals ...os.Signal) (stop func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, signals...)

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		count := 0
		for {
			select {
			case sig := <-sigCh:
				count++
				if count == 1 {
					logger.Warn("received shutdown signal, draining in-flight requests", "signal", sig.String())
					c.Trip()
					continue
				}
				logger.Warn("received second signal, aborting in-flight requests", "signal", sig.String())
				if cancel != nil {
					cancel()
				}
				return
			case <-ctx.Done():
				return
			case <-quit:
				return
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			signal.Stop(sigCh)
			close(quit)
			wg.Wait()
		})
	}
}
