package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/runclub/internal/observability"
)

// Priority controls how aggressively a client paces itself between calls.
type Priority string

const (
	// PriorityHigh never sleeps unless a quota window is exhausted.
	PriorityHigh Priority = "high"
	// PriorityMedium spreads calls across the 15-minute window.
	PriorityMedium Priority = "medium"
	// PriorityLow spreads calls across the daily window.
	PriorityLow Priority = "low"
)

const (
	shortWindowSeconds = 900   // 15 minutes
	longWindowSeconds  = 86400 // 24 hours

	maxMediumPause = 2 * time.Second
	maxLowPause    = 5 * time.Second
)

// Snapshot is the last quota state reported by the API. Usage and limits
// are (15-minute, daily) pairs from the X-RateLimit-* headers.
type Snapshot struct {
	ShortUsage int
	LongUsage  int
	ShortLimit int
	LongLimit  int
}

// RateLimiter throttles a single client's call sequence against Strava's
// two sliding quota windows. The snapshot is replaced wholesale whenever a
// response carries both rate-limit headers; responses without them leave
// the previous snapshot in place.
//
// The recovery sleeps are fixed approximations rather than exact
// window-reset arithmetic: the server-reported snapshot is refreshed on
// the next response, which self-corrects any overshoot.
type RateLimiter struct {
	priority Priority

	mu       sync.Mutex
	snapshot *Snapshot

	// Overridable for tests.
	longRecovery  time.Duration
	shortRecovery time.Duration
}

// NewRateLimiter builds a limiter for one client with the given priority.
func NewRateLimiter(priority Priority) *RateLimiter {
	return &RateLimiter{
		priority:      priority,
		longRecovery:  60 * time.Second,
		shortRecovery: 30 * time.Second,
	}
}

// UpdateFromHeaders replaces the snapshot from X-RateLimit-Usage and
// X-RateLimit-Limit ("short,long" pairs). Missing or malformed headers are
// not an error; the previous snapshot stays untouched.
func (rl *RateLimiter) UpdateFromHeaders(h http.Header) {
	usageShort, usageLong, ok := parsePair(h.Get("X-RateLimit-Usage"))
	if !ok {
		return
	}
	limitShort, limitLong, ok := parsePair(h.Get("X-RateLimit-Limit"))
	if !ok {
		return
	}

	rl.mu.Lock()
	rl.snapshot = &Snapshot{
		ShortUsage: usageShort,
		LongUsage:  usageLong,
		ShortLimit: limitShort,
		LongLimit:  limitLong,
	}
	rl.mu.Unlock()
}

// Current returns the last observed snapshot, or nil before any headers
// have been seen.
func (rl *RateLimiter) Current() *Snapshot {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.snapshot == nil {
		return nil
	}
	s := *rl.snapshot
	return &s
}

// Wait is called once after each completed request and paces the next one.
// Exhausted windows suspend the caller for a fixed recovery interval
// regardless of priority; otherwise high priority returns immediately and
// medium/low spread remaining budget across their window. The sleep is a
// suspension point: it aborts early when ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	snap := rl.Current()
	if snap == nil {
		return nil
	}

	switch {
	case snap.LongUsage >= snap.LongLimit:
		observability.RecordThrottle("long", rl.longRecovery)
		return sleep(ctx, rl.longRecovery)
	case snap.ShortUsage >= snap.ShortLimit:
		observability.RecordThrottle("short", rl.shortRecovery)
		return sleep(ctx, rl.shortRecovery)
	}

	switch rl.priority {
	case PriorityMedium:
		if remaining := snap.ShortLimit - snap.ShortUsage; remaining > 0 {
			pause := pacing(shortWindowSeconds, remaining, maxMediumPause)
			observability.RecordThrottle("pacing", pause)
			return sleep(ctx, pause)
		}
	case PriorityLow:
		if remaining := snap.LongLimit - snap.LongUsage; remaining > 0 {
			pause := pacing(longWindowSeconds, remaining, maxLowPause)
			observability.RecordThrottle("pacing", pause)
			return sleep(ctx, pause)
		}
	}
	return nil
}

func pacing(windowSeconds, remaining int, max time.Duration) time.Duration {
	pause := time.Duration(float64(windowSeconds) / float64(remaining) * float64(time.Second))
	if pause > max {
		pause = max
	}
	return pause
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parsePair(raw string) (short, long int, ok bool) {
	if raw == "" {
		return 0, 0, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	short, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	long, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return short, long, true
}
