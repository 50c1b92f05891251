// Package dashboard owns the dashboard session: the reconcilers, the latest
// applied snapshot, and the poll loop that feeds them.
package dashboard

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/charts"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/mapview"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/timeutil"
)

// Status describes the freshness of what the dashboard shows.
type Status struct {
	Cycles              uint64    `json:"cycles"`
	Applied             uint64    `json:"applied"`
	Dropped             uint64    `json:"dropped"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Markers             int       `json:"markers"`
	Skipped             int       `json:"skipped"`
	Rejected            int       `json:"rejected"`
	Consistent          bool      `json:"consistent"`
	Stale               bool      `json:"stale"`
}

// Controller is one dashboard session. All reconciliation goes through
// Deliver, which serialises it and keeps the most recently arrived snapshot.
type Controller struct {
	markers    *mapview.Reconciler
	charts     *charts.Reconciler
	clock      timeutil.Clock
	staleAfter time.Duration
	logger     *zap.Logger

	arrivals atomic.Uint64

	mu       sync.RWMutex
	applied  uint64
	snapshot models.BinSnapshot
	status   Status
	started  time.Time
}

// NewController wires the marker and chart reconcilers into one session.
// staleAfter <= 0 disables the stale indicator.
func NewController(markers *mapview.Reconciler, chartRec *charts.Reconciler, clock timeutil.Clock, staleAfter time.Duration, logger *zap.Logger) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		markers:    markers,
		charts:     chartRec,
		clock:      clock,
		staleAfter: staleAfter,
		logger:     logger,
		started:    clock.Now(),
		status:     Status{Consistent: true},
	}
}

// Deliver applies a freshly arrived snapshot. The arrival sequence is taken
// before the lock, so a snapshot that loses the race to a later arrival is
// dropped instead of overwriting it. It reports whether the snapshot was applied.
func (c *Controller) Deliver(snapshot models.BinSnapshot) bool {
	seq := c.arrivals.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Cycles++
	if seq <= c.applied {
		c.status.Dropped++
		c.logger.Debug("dropping superseded snapshot", zap.Uint64("seq", seq), zap.Uint64("applied", c.applied))
		return false
	}

	mres := c.markers.Reconcile(snapshot)
	cres := c.charts.Update(snapshot)

	c.applied = seq
	c.snapshot = snapshot
	c.status.Applied++
	c.status.LastSuccess = c.clock.Now()
	c.status.LastError = ""
	c.status.ConsecutiveFailures = 0
	c.status.Markers = mres.Placed
	c.status.Skipped = mres.Skipped
	c.status.Rejected = snapshot.Rejected
	c.status.Consistent = cres.Consistent

	if snapshot.Rejected > 0 {
		c.logger.Warn("bin records failed to decode", zap.Uint64("seq", seq), zap.Int("rejected", snapshot.Rejected))
	}
	c.logger.Info("dashboard reconciled",
		zap.Uint64("seq", seq),
		zap.Int("bins", len(snapshot.Bins)),
		zap.Int("markers_removed", mres.Removed),
		zap.Int("markers_placed", mres.Placed),
		zap.Int("bins_skipped", mres.Skipped),
		zap.Int("bins_rejected", snapshot.Rejected),
		zap.Ints("distribution", cres.Distribution.Values),
		zap.Int("trend_points", len(cres.Trend.Values)))
	return true
}

// RecordFailure notes a failed cycle. What is on screen stays as it was.
func (c *Controller) RecordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Cycles++
	c.status.LastFailure = c.clock.Now()
	c.status.LastError = err.Error()
	c.status.ConsecutiveFailures++
}

// Snapshot returns the last applied snapshot.
func (c *Controller) Snapshot() models.BinSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Status returns the current status with the stale flag evaluated now.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.status
	if c.staleAfter > 0 {
		ref := st.LastSuccess
		if ref.IsZero() {
			ref = c.started
		}
		st.Stale = c.clock.Since(ref) > c.staleAfter
	}
	return st
}
