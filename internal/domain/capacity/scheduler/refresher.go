package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

// StatisticsLoader computes fresh statistics for the dashboard
type StatisticsLoader interface {
	GetStatistics(ctx context.Context, filter entity.JobFilter) (*entity.CapacityStatistics, error)
}

// Snapshot is the last statistics result accepted by the refresher
type Snapshot struct {
	Statistics entity.CapacityStatistics `json:"statistics"`
	Token      uint64                    `json:"token"`
	ComputedAt time.Time                 `json:"computed_at"`
}

// Refresher recomputes dashboard statistics in the background.
// Bursts of triggers inside the debounce window collapse into one recompute,
// and only the newest recompute may publish its result.
type Refresher struct {
	loader   StatisticsLoader
	filter   entity.JobFilter
	debounce time.Duration
	interval time.Duration
	logger   *slog.Logger

	triggerCh chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex

	// guarded by mu
	stopCh       chan struct{}
	token        uint64
	cancelLatest context.CancelFunc
	latest       *Snapshot
}

// Config holds configuration for the statistics refresher
type Config struct {
	Debounce time.Duration
	Interval time.Duration // zero disables periodic refresh
}

// New creates a new refresher for the default dashboard view
func New(loader StatisticsLoader, cfg Config, logger *slog.Logger) *Refresher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = time.Second
	}

	return &Refresher{
		loader:    loader,
		filter:    entity.JobFilter{View: entity.ViewAll},
		debounce:  cfg.Debounce,
		interval:  cfg.Interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start starts the refresher loop and schedules an initial recompute.
// A stopped refresher may be started again.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	stop := make(chan struct{})
	r.stopCh = stop
	r.mu.Unlock()

	r.logger.Info("capacity refresher started", "debounce", r.debounce, "interval", r.interval)

	r.wg.Add(1)
	go r.run(ctx, stop)
	r.Trigger()
}

// Stop stops the loop, cancels any in-flight recompute and waits for it
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	if r.cancelLatest != nil {
		r.cancelLatest()
	}
	stop := r.stopCh
	r.mu.Unlock()

	close(stop)
	r.wg.Wait()
	r.logger.Info("capacity refresher stopped")
}

// Trigger requests a recompute. It never blocks.
func (r *Refresher) Trigger() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
		// a trigger is already pending
	}
}

// Latest returns the newest accepted snapshot, or nil before the first one
func (r *Refresher) Latest() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		return nil
	}
	s := *r.latest
	return &s
}

func (r *Refresher) run(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// fire is nil while no recompute is pending
	var fire <-chan time.Time

	for {
		select {
		case <-r.triggerCh:
			fire = time.After(r.debounce)
		case <-tick:
			if fire == nil {
				fire = time.After(r.debounce)
			}
		case <-fire:
			fire = nil
			r.refresh(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh starts a recompute that supersedes any still in flight
func (r *Refresher) refresh(ctx context.Context) {
	r.mu.Lock()
	if r.cancelLatest != nil {
		r.cancelLatest()
	}
	r.token++
	token := r.token
	runCtx, cancel := context.WithCancel(ctx)
	r.cancelLatest = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		stats, err := r.loader.GetStatistics(runCtx, r.filter)
		if err != nil {
			if runCtx.Err() == nil {
				r.logger.Error("failed to refresh capacity statistics", "token", token, "error", err)
			}
			return
		}

		if r.publish(token, stats) {
			r.logger.Debug("capacity statistics refreshed", "token", token, "total", stats.Total)
		} else {
			r.logger.Debug("discarding superseded capacity statistics", "token", token)
		}
	}()
}

func (r *Refresher) publish(token uint64, stats *entity.CapacityStatistics) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.token {
		return false
	}
	r.latest = &Snapshot{
		Statistics: *stats,
		Token:      token,
		ComputedAt: time.Now(),
	}
	return true
}
