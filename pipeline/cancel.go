package pipeline

import (
	"context"
	"os"
	"os/signal"
)

// CancelController derives a cancellable context from SIGINT, swallowing
// the first IgnoreCount signals before actually cancelling (§4.H: "used
// to coordinate with an upstream pager" — a pager like `less` also
// receives Ctrl-C directly from the terminal, so hl's own handler only
// needs to act once the pager has had its chance to quit first).
type CancelController struct {
	IgnoreCount int

	sigCh chan os.Signal
	seen  int
}

// NewCancelController returns a controller watching for os.Interrupt.
func NewCancelController(ignoreCount int) *CancelController {
	return &CancelController{
		IgnoreCount: ignoreCount,
		sigCh:       make(chan os.Signal, 4),
	}
}

// Context returns a context cancelled once IgnoreCount+1 interrupts have
// been received. stop releases the underlying signal subscription and
// must be called once the pipeline run completes.
func (c *CancelController) Context(parent context.Context) (ctx context.Context, stop func()) {
	signal.Notify(c.sigCh, os.Interrupt)
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-c.sigCh:
				c.seen++
				if c.seen > c.IgnoreCount {
					cancel()
					return
				}
			case <-done:
				return
			}
		}
	}()
	return ctx, func() {
		close(done)
		signal.Stop(c.sigCh)
		cancel()
	}
}
