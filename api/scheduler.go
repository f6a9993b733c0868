/*
scheduler.go - Automated split backlog sweeper

PURPOSE:
  Periodically sweeps every household for settled transactions that have
  no ledger rows yet and splits them. Catches anything that slipped past
  the webhook path: transactions that were pending at delivery and later
  settled on redelivery, manual inserts, and failed recomputes.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Processes households independently; one bad household does not
    stall the rest
  - Zero-weight failures are logged and left unsplit, they need a
    policy or profile fix before they can resolve

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewSplitSweeper(store, handler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: RecomputeSplits endpoint (manual recompute)
  - store/sqlite/sqlite.go: ListUnsplitTransactions
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/evenly/split-engine/store/sqlite"
)

// SplitSweeper splits backlogged transactions on a schedule.
type SplitSweeper struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSplitSweeper creates a new sweeper.
func NewSplitSweeper(store *sqlite.Store, handler *Handler) *SplitSweeper {
	return &SplitSweeper{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (sw *SplitSweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.wg.Add(1)

	go sw.run()

	log.Printf("[Sweeper] Started with check interval: %v", sw.CheckInterval)
}

// Stop stops the sweeper.
func (sw *SplitSweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker != nil {
		sw.ticker.Stop()
		close(sw.stop)
		sw.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (sw *SplitSweeper) run() {
	defer sw.wg.Done()

	// Sweep immediately on start
	sw.SweepAll(context.Background())

	for {
		select {
		case <-sw.ticker.C:
			sw.SweepAll(context.Background())
		case <-sw.stop:
			return
		}
	}
}

// SweepAll splits the backlog of every household. Returns how many
// transactions were split.
func (sw *SplitSweeper) SweepAll(ctx context.Context) int {
	households, err := sw.Store.ListHouseholds(ctx)
	if err != nil {
		log.Printf("[Sweeper] Error listing households: %v", err)
		return 0
	}

	total := 0
	for _, hh := range households {
		n, err := sw.sweepHousehold(ctx, hh.ID)
		if err != nil {
			log.Printf("[Sweeper] Error sweeping household %s: %v", hh.ID, err)
			continue
		}
		total += n
	}

	if total > 0 {
		log.Printf("[Sweeper] Completed: %d transactions split", total)
	}
	return total
}

func (sw *SplitSweeper) sweepHousehold(ctx context.Context, householdID string) (int, error) {
	unsplit, err := sw.Store.ListUnsplitTransactions(ctx, householdID)
	if err != nil {
		return 0, err
	}
	if len(unsplit) == 0 {
		return 0, nil
	}

	members, err := sw.Store.ListMembers(ctx, householdID)
	if err != nil {
		return 0, err
	}
	policy, err := sw.Handler.policyFor(ctx, householdID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, tx := range unsplit {
		if _, err := sw.Handler.recomputeOne(ctx, tx, members, policy); err != nil {
			// Leave it in the backlog; it will resolve once the
			// household fixes its weights.
			log.Printf("[Sweeper] Cannot split transaction %s: %v", tx.ID, err)
			continue
		}
		count++
	}
	return count, nil
}
