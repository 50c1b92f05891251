package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/timeutil"
)

// ErrAlreadyRunning is returned by Start on a running poller.
var ErrAlreadyRunning = errors.New("poller already running")

// Fetcher produces one snapshot per call.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (models.BinSnapshot, error)
}

// Sink receives the outcome of each cycle.
type Sink interface {
	Deliver(snapshot models.BinSnapshot) bool
	RecordFailure(err error)
}

// Poller fetches once on Start and then on every tick. Cycles run one at a
// time on the poller's goroutine; ticks that arrive during a slow fetch are
// coalesced by the ticker.
type Poller struct {
	fetcher  Fetcher
	sink     Sink
	clock    timeutil.Clock
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a stopped poller.
func NewPoller(fetcher Fetcher, sink Sink, clock timeutil.Clock, interval time.Duration, logger *zap.Logger) *Poller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{fetcher: fetcher, sink: sink, clock: clock, interval: interval, logger: logger}
}

// Start launches the poll loop. It returns once the ticker exists; the first
// fetch happens asynchronously.
func (p *Poller) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.interval)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, ticker, p.done)
	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
// Stopping a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("poller stopped")
}

// Wait blocks until the loop exits, e.g. because the Start context ended.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, ticker timeutil.Ticker, done chan struct{}) {
	defer close(done)
	defer p.release(done)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.cycle(ctx)
		}
	}
}

// release clears the running state if it still belongs to the loop that owns
// done, so a poller whose Start context ended can be started again.
func (p *Poller) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.cancel, p.done = nil, nil
}

// cycle runs one fetch. Failures end the cycle only.
func (p *Poller) cycle(ctx context.Context) {
	start := p.clock.Now()
	snapshot, err := p.fetcher.FetchSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("fetch bins failed", zap.Error(err))
		p.sink.RecordFailure(err)
		return
	}
	p.logger.Debug("fetched bins",
		zap.Int("bins", len(snapshot.Bins)),
		zap.Duration("elapsed", p.clock.Since(start)))
	p.sink.Deliver(snapshot)
}
