package gatelist

import (
	"context"
	"sync"
	"time"
)

// DefaultRateInterval is the minimum time between accepted submission checks
// for one requester.
const DefaultRateInterval = 60 * time.Second

// Ledger records, per requester, the last time a submission passed the rate
// check. It lives for the process and is never persisted.
type Ledger struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	times    map[string]time.Time
}

// NewLedger creates a ledger. A nil now uses time.Now.
func NewLedger(interval time.Duration, now func() time.Time) *Ledger {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		interval: interval,
		now:      now,
		times:    make(map[string]time.Time),
	}
}

// Interval returns the configured window.
func (l *Ledger) Interval() time.Duration {
	return l.interval
}

// Allow checks whether key may proceed. If allowed, it records the current
// time and returns true. If not, it returns false and the remaining wait.
// Check and record are atomic.
func (l *Ledger) Allow(key string) (allowed bool, remaining time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.times[key]; ok {
		elapsed := now.Sub(last)
		if elapsed < l.interval {
			return false, l.interval - elapsed
		}
	}
	l.times[key] = now
	return true, 0
}

// Reset forgets every requester.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.times)
}

// Run removes expired entries every interval until ctx is done.
func (l *Ledger) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup removes entries older than the interval.
func (l *Ledger) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.interval)
	for key, t := range l.times {
		if !t.After(cutoff) {
			delete(l.times, key)
		}
	}
}

func (l *Ledger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.times)
}
