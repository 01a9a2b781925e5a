/*
scheduler.go - Debt status sweep

PURPOSE:
  A debt's status is recomputed whenever a period update is applied, but a
  record nobody touches would never turn overdue. The scheduler walks all
  debts on an interval and stores the status each one has now.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Sweeps once immediately on start
  - Stop waits for an in-flight sweep to finish

USAGE:
  scheduler := NewStatusScheduler(store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/collection-ledger/store/sqlite"
)

// StatusScheduler periodically refreshes debt statuses.
type StatusScheduler struct {
	Store         *sqlite.Store
	Log           zerolog.Logger
	CheckInterval time.Duration
	Enabled       bool

	// Now defaults to time.Now.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusScheduler creates a scheduler that sweeps hourly.
func NewStatusScheduler(store *sqlite.Store, log zerolog.Logger) *StatusScheduler {
	return &StatusScheduler{
		Store:         store,
		Log:           log,
		CheckInterval: time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (ss *StatusScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled || ss.CheckInterval <= 0 {
		ss.Log.Info().Msg("Status scheduler disabled")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)
	go ss.run()

	ss.Log.Info().Dur("interval", ss.CheckInterval).Msg("Status scheduler started")
}

// Stop stops the scheduler.
func (ss *StatusScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker == nil {
		return
	}
	ss.ticker.Stop()
	close(ss.stop)
	ss.wg.Wait()
	ss.ticker = nil
	ss.Log.Info().Msg("Status scheduler stopped")
}

func (ss *StatusScheduler) run() {
	defer ss.wg.Done()

	ss.Sweep(context.Background())
	for {
		select {
		case <-ss.ticker.C:
			ss.Sweep(context.Background())
		case <-ss.stop:
			return
		}
	}
}

// Sweep refreshes statuses once and returns how many debts changed.
func (ss *StatusScheduler) Sweep(ctx context.Context) int {
	now := time.Now
	if ss.Now != nil {
		now = ss.Now
	}
	changed, err := ss.Store.RefreshStatuses(ctx, now())
	if err != nil {
		ss.Log.Error().Err(err).Msg("Status sweep failed")
		return 0
	}
	if changed > 0 {
		ss.Log.Info().Int("changed", changed).Msg("Debt statuses refreshed")
	}
	return changed
}
