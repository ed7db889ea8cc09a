package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Actions limited per user.
const (
	ActionCreateOffer = "create_offer"
	ActionSendMessage = "send_message"
	ActionCreateChat  = "create_chat"
	ActionTyping      = "typing"

	// ActionHTTPRequest is keyed by client IP rather than user.
	ActionHTTPRequest = "http_request"
)

// Limit describes a token bucket: burst tokens, refilled one every interval.
type Limit struct {
	Burst    int
	Interval time.Duration
}

var DefaultLimits = map[string]Limit{
	ActionCreateOffer: {Burst: 10, Interval: 30 * time.Second}, // 10 offers, then 2 per minute
	ActionSendMessage: {Burst: 10, Interval: 6 * time.Second},  // 10 messages per minute
	ActionCreateChat:  {Burst: 5, Interval: 12 * time.Minute},  // 5 chats per hour
	ActionTyping:      {Burst: 30, Interval: 2 * time.Second},  // 30 typing events per minute
	ActionHTTPRequest: {Burst: 60, Interval: time.Second},
}

var fallbackLimit = Limit{Burst: 20, Interval: 3 * time.Second}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for different users and actions
type RateLimiter struct {
	limits  map[string]Limit
	buckets map[string]*bucket
	mutex   sync.Mutex
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimits(DefaultLimits)
}

func NewRateLimiterWithLimits(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes a token for the user action. When the bucket is empty it
// reports how long the caller has to wait.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		limit, ok := rl.limits[action]
		if !ok {
			limit = fallbackLimit
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(limit.Interval), limit.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup removes buckets that haven't been used for the given idle period.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine starts a cleanup routine that runs until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
