package duckdb

import (
	"log"
	"sync"
	"time"
)

// DefaultRetentionInterval is how often expired files are looked for.
const DefaultRetentionInterval = time.Hour

// RetentionConfig configures a RetentionCleaner.
type RetentionConfig struct {
	// MaxAge is how long an ingested file is kept after it was parsed.
	MaxAge   time.Duration
	Interval time.Duration
}

// RetentionCleaner periodically deletes files parsed longer than MaxAge ago.
type RetentionCleaner struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner runs one cleanup immediately and then one per interval.
// It returns nil when MaxAge is not positive, which disables retention.
func NewRetentionCleaner(store *Store, conf RetentionConfig) *RetentionCleaner {
	if conf.MaxAge <= 0 {
		return nil
	}
	interval := conf.Interval
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}

	rc := &RetentionCleaner{
		store:    store,
		maxAge:   conf.MaxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()
	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	n, err := rc.store.DeleteParsedBefore(time.Now().Add(-rc.maxAge))
	if err != nil {
		log.Printf("duckdb: retention cleanup error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("duckdb: retention cleanup removed %d files older than %s", n, rc.maxAge)
	}
}

// Stop ends the cleaner and waits for a running cleanup. It may be called
// more than once.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
