package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log"
	"time"

	"carmarket/internal/infrastructure/metrics"
	"carmarket/pkg/errors"
)

// Inbound events
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventMarkAsRead  = "markAsRead"
	EventPing        = "ping"
)

// Server replies
const (
	EventJoined = "joined"
	EventPong   = "pong"
	EventError  = "error"
)

const handlerTimeout = 10 * time.Second

type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type OutboundFrame struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type JoinData struct {
	UserID string `json:"userId"`
}

type SendMessageData struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
}

type TypingData struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type MarkAsReadData struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// HandleClientMessage processes one inbound frame of client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendError(client, "Invalid message format")
		return
	}

	switch frame.Event {
	case EventPing:
		metrics.IncWSEvent(frame.Event)
		m.sendToClient(client, EventPong, map[string]string{"status": "alive"})

	case EventJoin:
		metrics.IncWSEvent(frame.Event)
		m.handleJoin(client, frame.Data)

	case EventSendMessage, EventTyping, EventMarkAsRead:
		metrics.IncWSEvent(frame.Event)
		if !client.Joined() {
			m.sendError(client, "Join before sending events")
			return
		}
		if m.chats == nil {
			m.sendError(client, "Chat is unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		switch frame.Event {
		case EventSendMessage:
			m.handleSendMessage(ctx, client, frame.Data)
		case EventTyping:
			m.handleTyping(ctx, client, frame.Data)
		case EventMarkAsRead:
			m.handleMarkAsRead(ctx, client, frame.Data)
		}

	default:
		log.Printf("WebSocket: Unknown event '%s' from client %s", frame.Event, client.UserID)
		m.sendError(client, "Unknown event")
	}
}

// handleJoin binds the connection to its user channel. A socket may only
// join the channel of the identity it authenticated as.
func (m *Manager) handleJoin(client *Client, raw json.RawMessage) {
	var data JoinData
	if err := json.Unmarshal(raw, &data); err != nil || data.UserID == "" {
		m.sendError(client, "Invalid join data")
		return
	}
	if data.UserID != client.UserID {
		log.Printf("WebSocket: Client %s attempted to join channel of %s", client.UserID, data.UserID)
		m.sendError(client, "Cannot join another user's channel")
		return
	}

	client.joined.Store(true)
	m.sendToClient(client, EventJoined, JoinData{UserID: client.UserID})
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, raw json.RawMessage) {
	var data SendMessageData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(client, "Invalid send message data")
		return
	}
	if data.SenderID != "" && data.SenderID != client.UserID {
		m.sendError(client, "Sender does not match the connection")
		return
	}

	if _, err := m.chats.PostMessage(ctx, data.ChatID, client.UserID, data.Content); err != nil {
		m.sendAppError(client, err)
	}
}

func (m *Manager) handleTyping(ctx context.Context, client *Client, raw json.RawMessage) {
	var data TypingData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(client, "Invalid typing data")
		return
	}
	if data.UserID != "" && data.UserID != client.UserID {
		m.sendError(client, "User does not match the connection")
		return
	}

	if err := m.chats.SetTyping(ctx, data.ChatID, client.UserID, data.IsTyping); err != nil {
		m.sendAppError(client, err)
	}
}

func (m *Manager) handleMarkAsRead(ctx context.Context, client *Client, raw json.RawMessage) {
	var data MarkAsReadData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(client, "Invalid mark as read data")
		return
	}
	if data.UserID != "" && data.UserID != client.UserID {
		m.sendError(client, "User does not match the connection")
		return
	}

	if err := m.chats.MarkRead(ctx, data.ChatID, client.UserID); err != nil {
		m.sendAppError(client, err)
	}
}

func (m *Manager) sendError(client *Client, message string) {
	m.sendToClient(client, EventError, ErrorData{Message: message})
}

// sendAppError reports a use case failure without leaking internal detail.
func (m *Manager) sendAppError(client *Client, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != errors.CodeInternal {
		m.sendToClient(client, EventError, ErrorData{Code: appErr.Code, Message: appErr.Message})
		return
	}
	log.Printf("WebSocket: Handler error for client %s: %v", client.UserID, err)
	m.sendToClient(client, EventError, ErrorData{Code: errors.CodeInternal, Message: "Internal server error"})
}
