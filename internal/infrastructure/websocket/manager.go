package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"carmarket/internal/domain/entity"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// ChatService handles the chat actions that arrive over the socket.
type ChatService interface {
	PostMessage(ctx context.Context, chatID, senderID, content string) (*entity.Message, error)
	SetTyping(ctx context.Context, chatID, userID string, isTyping bool) error
	MarkRead(ctx context.Context, chatID, userID string) error
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// joined is set once the client sent join; only joined clients receive events.
	joined atomic.Bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) Joined() bool {
	return c.joined.Load()
}

// Manager keeps the live connections of every user and delivers events to
// them. Delivery is best effort: events for users without a joined
// connection are dropped.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	chats      ChatService
	mutex      sync.RWMutex

	// done is closed when the main loop exits; nothing reads the channels after that.
	done chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetChatService wires the handler of inbound chat events. The manager is
// built before the chat use case, which notifies through it.
func (m *Manager) SetChatService(chats ChatService) {
	m.chats = chats
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				metrics.IncWSActive()
				logger.Debug("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				m.closeAll()
				close(m.done)
				return
			}
		}
	}()
}

// Done is closed once the manager has stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// RegisterClient hands client to the main loop. It reports false when the
// manager has already stopped.
func (m *Manager) RegisterClient(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) unregisterClient(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}

	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	close(client.Send)
	metrics.DecWSActive()
	logger.Debug("Client unregistered: %s", client.UserID)
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for userID, conns := range m.clients {
		for client := range conns {
			close(client.Send)
			metrics.DecWSActive()
		}
		delete(m.clients, userID)
	}
}

// IsOnline reports whether the user has at least one registered connection.
func (m *Manager) IsOnline(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// Notify sends event to every joined connection of userID.
func (m *Manager) Notify(userID, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("WebSocket: Failed to encode %s for %s: %v", event, userID, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients[userID] {
		if !client.Joined() {
			continue
		}
		select {
		case client.Send <- frame:
			metrics.IncWSEvent(event)
		default:
			log.Printf("WebSocket: Send buffer full for %s, dropping %s", userID, event)
		}
	}
}

// sendToClient writes a frame to one connection regardless of its join state.
func (m *Manager) sendToClient(client *Client, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("WebSocket: Failed to encode %s: %v", event, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, ok := m.clients[client.UserID][client]; !ok {
		return
	}
	select {
	case client.Send <- frame:
	default:
		log.Printf("WebSocket: Send buffer full for %s, dropping %s", client.UserID, event)
	}
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(OutboundFrame{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadPump reads frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.unregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("error: %v", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
