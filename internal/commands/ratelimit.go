package commands

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketIdle is how long a sender's bucket survives without traffic. Buckets
// refill completely within a minute, so evicting after that loses nothing.
const bucketIdle = 2 * time.Minute

// Limiter is a per-sender token bucket. A zero per-minute budget disables it.
type Limiter struct {
	mu        sync.Mutex
	perMin    int
	bySend    map[int64]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLimiter(perMin int) *Limiter {
	return &Limiter{perMin: max(perMin, 0), bySend: map[int64]*bucket{}, now: time.Now}
}

// SetRate changes the budget; existing buckets are dropped.
func (l *Limiter) SetRate(perMin int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	perMin = max(perMin, 0)
	if perMin == l.perMin {
		return
	}
	l.perMin = perMin
	clear(l.bySend)
}

func (l *Limiter) Allow(from int64) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perMin == 0 {
		return true
	}
	now := l.now()
	l.sweepLocked(now)
	b, ok := l.bySend[from]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.bySend[from] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < bucketIdle {
		return
	}
	l.lastSweep = now
	for id, b := range l.bySend {
		if now.Sub(b.seen) >= bucketIdle {
			delete(l.bySend, id)
		}
	}
}

