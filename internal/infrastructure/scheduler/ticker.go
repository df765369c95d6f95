package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

// TickerDriver triggers the cycle on a fixed interval. Precision is
// irrelevant here: the run ledger's cycle guard turns every extra trigger
// inside an already-completed period into a no-op.
type TickerDriver struct {
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

var _ ports.CycleDriver = (*TickerDriver)(nil)

// NewTickerDriver builds a driver firing every interval, and once at start.
func NewTickerDriver(interval time.Duration) *TickerDriver {
	return &TickerDriver{interval: interval}
}

// Start begins ticking; the first trigger fires immediately. A second Start
// on the same driver is a no-op.
func (d *TickerDriver) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	if d.stop != nil {
		d.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Safe to call more than once.
func (d *TickerDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop == nil || d.stopped {
		return nil
	}
	d.stopped = true
	close(d.stop)
	return nil
}
