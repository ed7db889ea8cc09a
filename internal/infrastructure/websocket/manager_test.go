package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain/entity"
	"carmarket/pkg/errors"
)

type chatServiceMock struct {
	mock.Mock
}

func (m *chatServiceMock) PostMessage(ctx context.Context, chatID, senderID, content string) (*entity.Message, error) {
	args := m.Called(ctx, chatID, senderID, content)
	message, _ := args.Get(0).(*entity.Message)
	return message, args.Error(1)
}

func (m *chatServiceMock) SetTyping(ctx context.Context, chatID, userID string, isTyping bool) error {
	return m.Called(ctx, chatID, userID, isTyping).Error(0)
}

func (m *chatServiceMock) MarkRead(ctx context.Context, chatID, userID string) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

func startManager(t *testing.T) (*Manager, *chatServiceMock) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewManager()
	chats := &chatServiceMock{}
	m.SetChatService(chats)
	m.Start(ctx)
	return m, chats
}

func connect(t *testing.T, m *Manager, userID string) *Client {
	t.Helper()
	client := NewClient(userID, nil)
	m.Register <- client
	require.Eventually(t, func() bool { return m.IsOnline(userID) }, time.Second, 5*time.Millisecond)
	return client
}

func send(t *testing.T, m *Manager, client *Client, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	m.HandleClientMessage(client, raw)
}

func next(t *testing.T, client *Client) OutboundFrame {
	t.Helper()
	select {
	case raw := <-client.Send:
		var frame OutboundFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return OutboundFrame{}
	}
}

func assertNoFrame(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("unexpected frame %s", raw)
	default:
	}
}

func TestNotifyRequiresJoin(t *testing.T) {
	m, _ := startManager(t)
	client := connect(t, m, "user-1")

	m.Notify("user-1", "offerAccepted", map[string]string{"offer_id": "o1"})
	assertNoFrame(t, client)

	send(t, m, client, EventJoin, JoinData{UserID: "user-1"})
	assert.Equal(t, EventJoined, next(t, client).Event)

	m.Notify("user-1", "offerAccepted", map[string]string{"offer_id": "o1"})
	frame := next(t, client)
	assert.Equal(t, "offerAccepted", frame.Event)
	assert.Equal(t, map[string]interface{}{"offer_id": "o1"}, frame.Data)

	// Other users' events never reach this channel.
	m.Notify("user-2", "offerAccepted", map[string]string{"offer_id": "o2"})
	assertNoFrame(t, client)
}

func TestJoinRefusesForeignChannel(t *testing.T) {
	m, _ := startManager(t)
	client := connect(t, m, "user-1")

	send(t, m, client, EventJoin, JoinData{UserID: "user-2"})
	assert.Equal(t, EventError, next(t, client).Event)
	assert.False(t, client.Joined())

	m.Notify("user-2", "newMessage", nil)
	m.Notify("user-1", "newMessage", nil)
	assertNoFrame(t, client)
}

func connections(m *Manager, userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

func TestNotifyReachesEveryJoinedConnection(t *testing.T) {
	m, _ := startManager(t)
	phone := connect(t, m, "user-1")
	laptop := NewClient("user-1", nil)
	m.Register <- laptop
	require.Eventually(t, func() bool { return connections(m, "user-1") == 2 }, time.Second, 5*time.Millisecond)

	for _, client := range []*Client{phone, laptop} {
		send(t, m, client, EventJoin, JoinData{UserID: "user-1"})
		assert.Equal(t, EventJoined, next(t, client).Event)
	}

	m.Notify("user-1", "carStatusUpdate", map[string]string{"car_id": "c1", "status": "Approved"})
	assert.Equal(t, "carStatusUpdate", next(t, phone).Event)
	assert.Equal(t, "carStatusUpdate", next(t, laptop).Event)

	m.Unregister <- phone
	require.Eventually(t, func() bool { return connections(m, "user-1") == 1 }, time.Second, 5*time.Millisecond)

	_, open := <-phone.Send
	assert.False(t, open)
	assert.True(t, m.IsOnline("user-1"))
}

func TestChatEventsAreRoutedToChatService(t *testing.T) {
	m, chats := startManager(t)
	client := connect(t, m, "user-1")

	send(t, m, client, EventSendMessage, SendMessageData{ChatID: "chat-1", Content: "hi"})
	assert.Equal(t, EventError, next(t, client).Event, "events before join are refused")

	send(t, m, client, EventJoin, JoinData{UserID: "user-1"})
	next(t, client)

	chats.On("PostMessage", mock.Anything, "chat-1", "user-1", "hi").Return(&entity.Message{ID: "m1"}, nil).Once()
	chats.On("SetTyping", mock.Anything, "chat-1", "user-1", true).Return(nil).Once()
	chats.On("MarkRead", mock.Anything, "chat-1", "user-1").Return(nil).Once()

	send(t, m, client, EventSendMessage, SendMessageData{ChatID: "chat-1", Content: "hi", SenderID: "user-1"})
	send(t, m, client, EventTyping, TypingData{ChatID: "chat-1", UserID: "user-1", IsTyping: true})
	send(t, m, client, EventMarkAsRead, MarkAsReadData{ChatID: "chat-1", UserID: "user-1"})
	chats.AssertExpectations(t)
	assertNoFrame(t, client)

	send(t, m, client, EventSendMessage, SendMessageData{ChatID: "chat-1", Content: "spoofed", SenderID: "user-2"})
	assert.Equal(t, EventError, next(t, client).Event)
	chats.AssertNotCalled(t, "PostMessage", mock.Anything, "chat-1", "user-2", "spoofed")
}

func TestChatServiceErrorsAreReported(t *testing.T) {
	m, chats := startManager(t)
	client := connect(t, m, "user-1")
	send(t, m, client, EventJoin, JoinData{UserID: "user-1"})
	next(t, client)

	chats.On("PostMessage", mock.Anything, "chat-9", "user-1", "hi").
		Return(nil, errors.Forbidden("You are not a participant in this chat", nil)).Once()

	send(t, m, client, EventSendMessage, SendMessageData{ChatID: "chat-9", Content: "hi"})
	frame := next(t, client)
	assert.Equal(t, EventError, frame.Event)
	assert.Equal(t, map[string]interface{}{
		"code":    errors.CodeForbidden,
		"message": "You are not a participant in this chat",
	}, frame.Data)
}

func TestPingAndUnknownEvents(t *testing.T) {
	m, _ := startManager(t)
	client := connect(t, m, "user-1")

	send(t, m, client, EventPing, nil)
	assert.Equal(t, EventPong, next(t, client).Event)

	send(t, m, client, "teleport", nil)
	assert.Equal(t, EventError, next(t, client).Event)

	m.HandleClientMessage(client, []byte("not json"))
	assert.Equal(t, EventError, next(t, client).Event)
}

func TestReadPumpReturnsAfterManagerStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	returned := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient("u1", conn)
		if !m.RegisterClient(client) {
			conn.Close()
			return
		}
		go func() {
			client.ReadPump(m)
			close(returned)
		}()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.IsOnline("u1") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	conn.Close()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("read pump still waiting to unregister")
	}

	assert.False(t, m.RegisterClient(NewClient("u2", nil)))
	assert.False(t, m.IsOnline("u1"))
}
