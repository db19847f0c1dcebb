package store

import (
	"log"
	"time"
)

// Sweeper periodically evicts sessions idle longer than the TTL.
type Sweeper struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a sweeper for the given store. Call Start to begin
// sweeping and Stop to shut it down.
func NewSweeper(store *Store, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (sw *Sweeper) Start() {
	go sw.run()
}

func (sw *Sweeper) run() {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := sw.store.SweepExpired(time.Now(), sw.ttl); n > 0 {
				log.Printf("Cleanup: deleted %d expired session(s)", n)
			}
		case <-sw.done:
			return
		}
	}
}

// Stop terminates the sweep loop. Safe to call once.
func (sw *Sweeper) Stop() {
	close(sw.done)
}
