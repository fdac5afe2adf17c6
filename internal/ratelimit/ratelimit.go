// Package ratelimit guards call placement with two independent in-process
// windows: a sliding hour window per (caller, vehicle) pair and a UTC
// calendar-day cap per vehicle. State is process-local; a deployment that
// scales horizontally swaps this for a shared counter store behind the same
// two methods.
package ratelimit

import (
	"sync"
	"time"

	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
)

// Limiter is what the contact relay consults before placing a call.
type Limiter interface {
	// CheckCallerLimit records one attempt for the (caller, vehicle) pair
	// and allows it, unless the pair already hit its window cap.
	CheckCallerLimit(callerHash, vehicleID string) bool
	// CheckVehicleLimit records one attempt against the vehicle's daily cap
	// and allows it, unless the cap is already reached for today (UTC).
	CheckVehicleLimit(vehicleID string) bool
}

// InMemory implements Limiter with mutex-guarded maps. A rare off-by-one
// under contention is acceptable here; blocked requests leave no state.
type InMemory struct {
	mu    sync.Mutex
	clock clock.Clock

	// attempts holds per-pair attempt timestamps, pruned on access.
	attempts map[string][]time.Time
	// daily holds per-vehicle counts keyed by UTC date.
	daily    map[string]int
	dailyDay string
}

func NewInMemory(c clock.Clock) *InMemory {
	return &InMemory{
		clock:    c,
		attempts: make(map[string][]time.Time),
		daily:    make(map[string]int),
	}
}

func (l *InMemory) CheckCallerLimit(callerHash, vehicleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	key := callerHash + "|" + vehicleID
	cutoff := now.Add(-config.CallerWindow)

	recent := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= config.MaxCallerAttemptsPerWindow {
		l.attempts[key] = recent
		return false
	}

	l.attempts[key] = append(recent, now)
	return true
}

func (l *InMemory) CheckVehicleLimit(vehicleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.clock.Now().UTC().Format("2006-01-02")
	if day != l.dailyDay {
		// Calendar day rolled over; yesterday's counts are irrelevant.
		l.daily = make(map[string]int)
		l.dailyDay = day
	}

	if l.daily[vehicleID] >= config.MaxVehicleAttemptsPerDay {
		return false
	}

	l.daily[vehicleID]++
	return true
}
