package slidingwindow

import (
	"context"
	"sync"
	"time"
)

// Limiter allows at most max events per interval. It stores its counters in
// memory only and is shared by every request sent to one backend host.
type Limiter struct {
	// start of the current window in unix nanoseconds
	start int64

	// last accepted call, or a future instant set by WaitTill
	last int64

	interval int64

	// events accepted in the current window
	count int64

	max int64
	mu  sync.Mutex
}

// NewLimiter returns a Limiter allowing maxevents per interval. A
// maxevents <= 0 disables limiting.
func NewLimiter(interval time.Duration, maxevents int64) *Limiter {
	now := time.Now().UnixNano()
	return &Limiter{interval: int64(interval), max: maxevents, start: now, last: now}
}

// Allow accepts an event if the window has room. Otherwise it returns false
// and the time left until the window rolls over.
func (lim *Limiter) Allow() (bool, time.Duration) {
	if lim == nil || lim.max <= 0 {
		return true, 0
	}
	lim.mu.Lock()
	defer lim.mu.Unlock()

	now := time.Now().UnixNano()
	if now < lim.last {
		return false, time.Duration(lim.last - now)
	}
	if now-lim.start > lim.interval {
		lim.start = now
		lim.count = 0
	}
	if lim.count < lim.max {
		lim.count++
		lim.last = now
		return true, 0
	}
	return false, time.Duration(lim.interval - (now - lim.start))
}

// Wait blocks until an event is accepted or ctx is done.
func (lim *Limiter) Wait(ctx context.Context) error {
	for {
		ok, wait := lim.Allow()
		if ok {
			return nil
		}
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitTill blocks every event until t, e.g. after a 429 carrying Retry-After.
func (lim *Limiter) WaitTill(t time.Time) {
	lim.mu.Lock()
	defer lim.mu.Unlock()
	lim.last = t.UnixNano()
}
