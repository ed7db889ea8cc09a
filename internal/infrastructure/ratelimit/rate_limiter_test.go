package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBurstPerUserAction(t *testing.T) {
	rl := NewRateLimiterWithLimits(map[string]Limit{
		ActionCreateOffer: {Burst: 2, Interval: time.Hour},
	})

	for i := 0; i < 2; i++ {
		allowed, _ := rl.Allow("seller", ActionCreateOffer)
		assert.True(t, allowed)
	}

	allowed, wait := rl.Allow("seller", ActionCreateOffer)
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))

	// Other users and actions have their own buckets.
	allowed, _ = rl.Allow("other", ActionCreateOffer)
	assert.True(t, allowed)
	allowed, _ = rl.Allow("seller", ActionSendMessage)
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter()
	current := time.Now()
	rl.now = func() time.Time { return current }

	rl.Allow("u1", ActionTyping)
	current = current.Add(2 * time.Hour)
	rl.Allow("u2", ActionTyping)

	rl.Cleanup(time.Hour)

	assert.Len(t, rl.buckets, 1)
	assert.Contains(t, rl.buckets, "u2:"+ActionTyping)
}
