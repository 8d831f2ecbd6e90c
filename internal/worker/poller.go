package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caribook/internal/log"
)

// Poller runs ProcessPendingEvents on a fixed interval.
type Poller struct {
	worker   *SyncWorker
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(worker *SyncWorker, interval time.Duration) *Poller {
	return &Poller{worker: worker, interval: interval}
}

// Start begins the loop. It fails if the poller is already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.run(ctx, p.stopCh, p.doneCh)

	p.worker.logger.InfoContext(ctx, "Pending sync poller started", "interval", p.interval)
	return nil
}

// Stop ends the loop and waits for the current pass, or until ctx is done.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		p.worker.logger.WarnContext(ctx, "Pending sync poller stop timed out")
		return ctx.Err()
	}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.worker.ProcessPendingEvents(ctx); err != nil {
				p.worker.logger.ErrorContext(ctx, "Pending sync pass failed", log.FieldError, err)
			}
		}
	}
}
