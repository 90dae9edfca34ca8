package riot

import (
	"context"
	"sync"
	"time"
)

// slidingLimiter enforces two overlapping windows (per second and per two
// minutes) by tracking request timestamps, mirroring the shape of the
// provider's own counting.
type slidingLimiter struct {
	mu        sync.Mutex
	perSecond int
	perTwoMin int
	recent    []time.Time
}

func newSlidingLimiter(perSecond, perTwoMin int) *slidingLimiter {
	return &slidingLimiter{perSecond: perSecond, perTwoMin: perTwoMin}
}

// Wait blocks until a request slot is available in both windows, or the
// context ends.
func (l *slidingLimiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reserve records the request and returns 0 when a slot was free, otherwise
// the time until the oldest blocking timestamp leaves its window.
func (l *slidingLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.prune(now)

	inSecond := 0
	for _, t := range l.recent {
		if now.Sub(t) < time.Second {
			inSecond++
		}
	}
	if inSecond >= l.perSecond {
		oldest := l.recent[len(l.recent)-inSecond]
		return time.Second - now.Sub(oldest)
	}
	if len(l.recent) >= l.perTwoMin {
		return 2*time.Minute - now.Sub(l.recent[0])
	}

	l.recent = append(l.recent, now)
	return 0
}

func (l *slidingLimiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.recent) && now.Sub(l.recent[cut]) >= 2*time.Minute {
		cut++
	}
	if cut > 0 {
		l.recent = l.recent[cut:]
	}
}
