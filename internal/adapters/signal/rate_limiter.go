package signal

import (
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/domain"
)

// MessageRateLimiter is a sliding-window limiter on chat messages per
// wallet, so one flooding peer cannot drown its room.
type MessageRateLimiter struct {
	mu        sync.Mutex
	history   map[domain.Wallet][]time.Time
	limit     int
	interval  time.Duration
	lastSweep time.Time
}

func NewMessageRateLimiter(limit int, interval time.Duration) *MessageRateLimiter {
	return &MessageRateLimiter{
		history:   make(map[domain.Wallet][]time.Time),
		limit:     limit,
		interval:  interval,
		lastSweep: time.Now(),
	}
}

func (rl *MessageRateLimiter) Allow(wallet domain.Wallet) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)
	rl.sweep(now, windowStart)

	attempts := rl.history[wallet]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[wallet] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[wallet] = fresh
	return true
}

// sweep drops wallets whose whole history fell out of the window, at most
// once per interval. Without it every wallet string ever seen would keep
// a map entry forever.
func (rl *MessageRateLimiter) sweep(now, windowStart time.Time) {
	if now.Sub(rl.lastSweep) < rl.interval {
		return
	}
	rl.lastSweep = now
	for wallet, attempts := range rl.history {
		idle := true
		for _, t := range attempts {
			if t.After(windowStart) {
				idle = false
				break
			}
		}
		if idle {
			delete(rl.history, wallet)
		}
	}
}
