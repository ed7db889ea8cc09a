package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(userID, event string, payload interface{}) {
	m.Called(userID, event, payload)
}

// Notification is one delivered event.
type Notification struct {
	UserID  string
	Event   string
	Payload interface{}
}

// NotifierRecorder keeps every notification, for tests that assert on the
// full set of deliveries instead of expectations.
type NotifierRecorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *NotifierRecorder) Notify(userID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{UserID: userID, Event: event, Payload: payload})
}

func (r *NotifierRecorder) For(userID string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Notification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
