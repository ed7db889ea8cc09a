package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatIdentityIsOrderIndependent(t *testing.T) {
	assert.Equal(t, ParticipantKey("alice", "bob"), ParticipantKey("bob", "alice"))
	assert.Equal(t, ChatID("car-1", "alice", "bob"), ChatID("car-1", "bob", "alice"))
	assert.NotEqual(t, ChatID("car-1", "alice", "bob"), ChatID("car-2", "alice", "bob"))
}

func TestNewChat(t *testing.T) {
	chat := NewChat("car-1", "bob", "alice", time.Now())

	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)
	assert.Equal(t, map[string]int{"alice": 0, "bob": 0}, chat.UnreadCounts)
	assert.True(t, chat.HasParticipant("bob"))
	assert.False(t, chat.HasParticipant("carol"))
	assert.Equal(t, []string{"bob"}, chat.Others("alice"))
}

func TestBuyerRequestIsOpen(t *testing.T) {
	now := time.Now()
	req := &BuyerRequest{Status: RequestStatusActive, ExpiryDate: now.Add(time.Hour)}
	assert.True(t, req.IsOpen(now))

	req.ExpiryDate = now.Add(-time.Second)
	assert.False(t, req.IsOpen(now))

	req.ExpiryDate = now.Add(time.Hour)
	req.Status = RequestStatusFulfilled
	assert.False(t, req.IsOpen(now))
}
