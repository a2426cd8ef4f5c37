package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/kitchenlane/catering-ops/pkg/circuitbreaker"
	"github.com/kitchenlane/catering-ops/pkg/errors"
	"github.com/kitchenlane/catering-ops/pkg/logger"
	"github.com/kitchenlane/catering-ops/pkg/middleware"
)

// FetchFunc loads a fresh snapshot for a view.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Status describes the freshness of a view's snapshot.
type Status struct {
	LastRefresh time.Time `json:"last_refresh"`
	Stale       bool      `json:"stale"`
	HasData     bool      `json:"has_data"`
}

// Refresher keeps one view eventually consistent with the order store. Two
// triggers cause a refetch: the fixed interval tick and an invalidation from
// the change-notification consumer. The two are coalesced: a trigger arriving
// within the debounce window of the last successful refresh is skipped. A
// failed fetch keeps the previous snapshot visible (stale-but-available) and
// is retried on the next trigger; the breaker sheds refetch attempts while
// the store stays down.
type Refresher struct {
	name     string
	fetch    FetchFunc
	interval time.Duration
	debounce time.Duration
	timeout  time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	logger   logger.Logger

	mu          sync.RWMutex
	snapshot    interface{}
	hasData     bool
	stale       bool
	lastRefresh time.Time

	invalidations chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Config configures a Refresher.
type Config struct {
	Interval time.Duration
	Debounce time.Duration
	// Timeout bounds a single fetch. Defaults to the interval.
	Timeout time.Duration
}

// NewRefresher creates a refresher for the named view.
func NewRefresher(name string, fetch FetchFunc, cfg Config, logger logger.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = cfg.Interval
	}

	return &Refresher{
		name:     name,
		fetch:    fetch,
		interval: cfg.Interval,
		debounce: cfg.Debounce,
		timeout:  timeout,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 1,
		}),
		logger:        logger,
		invalidations: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start performs an initial refresh and launches the background loop.
func (r *Refresher) Start() {
	r.refresh()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()

	r.logger.Info("View refresher started",
		"view", r.name,
		"interval", r.interval,
		"debounce", r.debounce)
}

// Stop terminates the background loop.
func (r *Refresher) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Invalidate requests an immediate refresh, typically on a change
// notification. Signals collapse: many notifications in flight cause at most
// one extra refresh.
func (r *Refresher) Invalidate() {
	select {
	case r.invalidations <- struct{}{}:
	default:
	}
}

// Snapshot returns the last good snapshot and its freshness.
func (r *Refresher) Snapshot() (interface{}, Status) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshot, Status{
		LastRefresh: r.lastRefresh,
		Stale:       r.stale,
		HasData:     r.hasData,
	}
}

func (r *Refresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			// A push-triggered refresh just before the tick makes this
			// poll redundant.
			if r.withinDebounce() {
				continue
			}
			r.refresh()
		case <-r.invalidations:
			if r.withinDebounce() {
				continue
			}
			r.refresh()
		}
	}
}

func (r *Refresher) withinDebounce() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.stale && !r.lastRefresh.IsZero() && time.Since(r.lastRefresh) < r.debounce
}

func (r *Refresher) refresh() {
	if !r.breaker.Allow() {
		r.logger.Warn("Refresh skipped, breaker open", "view", r.name)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	snapshot, err := r.fetch(ctx)

	if err != nil {
		r.breaker.Failure()
		middleware.RecordProjectionRefresh(r.name, false)

		r.mu.Lock()
		r.stale = true
		r.mu.Unlock()

		r.logger.Error("View refresh failed, keeping last snapshot",
			"view", r.name,
			"error", err,
			"retryable", errors.IsRetryable(err))
		return
	}

	r.breaker.Success()
	middleware.RecordProjectionRefresh(r.name, true)

	r.mu.Lock()
	r.snapshot = snapshot
	r.hasData = true
	r.stale = false
	r.lastRefresh = time.Now()
	r.mu.Unlock()
}
