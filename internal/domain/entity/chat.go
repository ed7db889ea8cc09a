package entity

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LastMessage struct {
	Content   string    `json:"content" firestore:"content" bson:"content"`
	SenderID  string    `json:"sender_id" firestore:"senderId" bson:"senderId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
}

type Chat struct {
	ID             string         `json:"id" firestore:"id" bson:"_id"`
	Participants   []string       `json:"participants" firestore:"participants" bson:"participants"`
	ParticipantKey string         `json:"-" firestore:"participantKey" bson:"participantKey"`
	CarID          string         `json:"car_id" firestore:"carId" bson:"carId"`
	LastMessage    *LastMessage   `json:"last_message,omitempty" firestore:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	UnreadCounts   map[string]int `json:"unread_counts" firestore:"unreadCounts" bson:"unreadCounts"`
	CreatedAt      time.Time      `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// ParticipantKey is the order independent key of an unordered user pair.
func ParticipantKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// ChatID derives a stable id for the chat about carID between a and b.
func ChatID(carID, a, b string) string {
	name := carID + "|" + ParticipantKey(a, b)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// NewChat builds an empty chat about carID between a and b.
func NewChat(carID, a, b string, now time.Time) *Chat {
	participants := []string{a, b}
	sort.Strings(participants)

	return &Chat{
		ID:             ChatID(carID, a, b),
		Participants:   participants,
		ParticipantKey: ParticipantKey(a, b),
		CarID:          carID,
		UnreadCounts:   map[string]int{a: 0, b: 0},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns every participant except userID.
func (c *Chat) Others(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}
