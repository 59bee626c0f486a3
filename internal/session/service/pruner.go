package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/tokenward/internal/session/ledger"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
)

// DefaultPruneInterval applies when the interval is zero or negative.
const DefaultPruneInterval = time.Hour

// Pruner periodically drops ledger state for tokens that can no longer
// validate, keeping the ledger bounded.
type Pruner struct {
	Ledger   ledger.Ledger
	Logger   *slog.Logger
	Clock    clock.Clock
	Interval time.Duration

	// Retention keeps entries this long past exp. Set it to the
	// validator's skew so a token accepted late is still seen as revoked.
	Retention time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewPruner(l ledger.Ledger, logger *slog.Logger, clk clock.Clock, interval, retention time.Duration) *Pruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if clk == nil {
		clk = clock.Real()
	}

	return &Pruner{
		Ledger:    l,
		Logger:    logger,
		Clock:     clk,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop.
func (p *Pruner) Start() {
	go p.run()
	p.Logger.Info("ledger pruner started", "interval", p.Interval)
}

// Stop shuts the worker down and waits for an in-flight prune to finish.
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		<-p.doneCh
		p.Logger.Info("ledger pruner stopped")
	})
}

func (p *Pruner) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.prune()

	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), p.Interval)
	defer cancel()

	n, err := p.RunOnce(ctx)
	if err != nil {
		p.Logger.Error("ledger prune failed", "error", err)
		return
	}
	p.Logger.Debug("ledger pruned", "removed", n)
}

// RunOnce prunes everything that expired more than Retention ago.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	return p.Ledger.Prune(ctx, p.Clock.Now().Add(-p.Retention))
}
