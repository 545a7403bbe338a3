package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"ticker_calendar_backend/services"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"
)

// refreshConcurrency bounds how many tickers refresh at once so the
// provider rate limiters are not all contended by a single run.
const refreshConcurrency = 4

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron      *gocron.Scheduler
	stocks    *services.StockService
	refreshAt string
	freshFor  time.Duration
	running   atomic.Bool
}

// NewScheduler creates a new scheduler instance. refreshAt is a UTC
// "HH:MM" time of day, freshFor the staleness threshold for cached stocks.
func NewScheduler(stocks *services.StockService, refreshAt string, freshFor time.Duration) *Scheduler {
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		stocks:    stocks,
		refreshAt: refreshAt,
		freshFor:  freshFor,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Refresh stale stocks daily after US market close
	s.cron.Every(1).Day().At(s.refreshAt).SingletonMode().Do(func() {
		s.RefreshStaleStocks(context.Background())
	})

	s.cron.StartAsync()
	log.Printf("Scheduler started, daily refresh at %s UTC", s.refreshAt)
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// RefreshStaleStocks refreshes every cached stock whose data is older than
// the staleness threshold. A ticker that fails is logged and skipped; the
// remaining tickers still refresh. Returns the number of tickers refreshed.
func (s *Scheduler) RefreshStaleStocks(ctx context.Context) int {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Refresh run already in progress, skipping")
		return 0
	}
	defer s.running.Store(false)

	tickers, err := s.stocks.Store().ListStaleTickers(s.freshFor)
	if err != nil {
		log.Printf("Error listing stale tickers: %v", err)
		return 0
	}
	if len(tickers) == 0 {
		log.Println("No stale stocks to refresh")
		return 0
	}

	log.Printf("Refreshing %d stale stocks...", len(tickers))

	var refreshed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if err := s.stocks.RefreshStock(gctx, ticker); err != nil {
				failed.Add(1)
				log.Printf("Error refreshing %s: %v", ticker, err)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	g.Wait()

	log.Printf("Refresh run finished: %d refreshed, %d failed", refreshed.Load(), failed.Load())
	return int(refreshed.Load())
}
