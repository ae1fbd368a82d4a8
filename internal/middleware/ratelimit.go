package middleware

import (
	"sync"
	"time"
)

// Limiter implements fixed-window rate limiting per client identifier. The
// first request from an identifier opens a window; requests within the window
// count against the quota, and the first request after the window expires
// opens a fresh one. Counts never decay mid-window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	span    time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	count   int
	resetAt time.Time
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// NewLimiter starts a limiter with a background sweep that drops expired
// windows. Call Stop to release the sweep goroutine.
func NewLimiter(maxRequests int, span, sweepEvery time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		max:     maxRequests,
		span:    span,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(sweepEvery)
	return l
}

// Admit checks and consumes one unit of quota for the identifier.
func (l *Limiter) Admit(identifier string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.span)}
		l.windows[identifier] = w
	}

	if w.count >= l.max {
		return Decision{Allowed: false, Remaining: 0, ResetTime: w.resetAt}
	}
	w.count++
	return Decision{Allowed: true, Remaining: l.max - w.count, ResetTime: w.resetAt}
}

// Limit returns the configured per-window quota.
func (l *Limiter) Limit() int { return l.max }

// Stop terminates the sweep goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for id, w := range l.windows {
				if !now.Before(w.resetAt) {
					delete(l.windows, id)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}
