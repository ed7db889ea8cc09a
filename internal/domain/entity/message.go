package entity

import "time"

type Message struct {
	ID        string    `json:"id" firestore:"id" bson:"_id"`
	ChatID    string    `json:"chat_id" firestore:"chatId" bson:"chatId"`
	SenderID  string    `json:"sender_id" firestore:"senderId" bson:"senderId"`
	Content   string    `json:"content" firestore:"content" bson:"content"`
	SeenBy    []string  `json:"seen_by" firestore:"seenBy" bson:"seenBy"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
}

func (m *Message) SeenByUser(userID string) bool {
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}
