// Package poller keeps the catalog in sync by refreshing it on an interval
// while someone is actually looking at the storefront.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval  = 30 * time.Second
	DefaultIdleAfter = 5 * time.Minute
)

// RefreshFunc reloads whatever the poller keeps fresh
type RefreshFunc func(ctx context.Context) error

// Poller runs refresh immediately on Start and then every interval. Ticks
// are skipped while no activity has been reported for idleAfter; the first
// Touch after that triggers a refresh straight away.
type Poller struct {
	refresh   RefreshFunc
	interval  time.Duration
	idleAfter time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	cancel       context.CancelFunc
	wake         chan struct{}
	done         chan struct{}
}

// New creates a new Poller
func New(refresh RefreshFunc, interval, idleAfter time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &Poller{
		refresh:   refresh,
		interval:  interval,
		idleAfter: idleAfter,
		logger:    logger.Named("poller"),
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Start begins polling until ctx is cancelled or Stop is called. Calling
// Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.lastActivity = p.now()
	done := p.done
	p.mu.Unlock()

	go p.run(ctx, done)
	p.logger.Info("Polling started", zap.Duration("interval", p.interval), zap.Duration("idle_after", p.idleAfter))
}

// Stop cancels polling and waits for a running refresh to return
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("Polling stopped")
}

// Touch records activity from the view
func (p *Poller) Touch() {
	p.mu.Lock()
	wasIdle := p.idleLocked()
	p.lastActivity = p.now()
	running := p.cancel != nil
	p.mu.Unlock()

	if wasIdle && running {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

// Idle reports whether the view has been quiet for longer than idleAfter
func (p *Poller) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleLocked()
}

func (p *Poller) idleLocked() bool {
	return !p.lastActivity.IsZero() && p.now().Sub(p.lastActivity) > p.idleAfter
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			p.logger.Debug("Activity after idle period, refreshing")
			p.tick(ctx)
		case <-ticker.C:
			if p.Idle() {
				p.logger.Debug("View idle, skipping refresh")
				continue
			}
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
		// the next tick retries
		p.logger.Warn("Refresh failed", zap.Error(err))
	}
}
