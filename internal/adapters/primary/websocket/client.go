package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpos/callcenter-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	// sendMu orders every queue attempt against CloseSend: once closed is
	// set no goroutine may send on Send again. The hub's eviction path
	// closes the channel while the read pump can still be handling frames.
	sendMu sync.Mutex
	closed bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// logger for this client
	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan domain.Event, 256),
		logger: logger.With("component", "websocket_client"),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.Send)
		c.sendMu.Unlock()
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		if !c.handleIncomingMessage(message) {
			break
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleIncomingMessage processes a message received from the client.
// It returns false when the connection must be torn down.
func (c *Client) handleIncomingMessage(message []byte) bool {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return true
	}

	// Until the handshake succeeds the only acceptable message is
	// "authenticate". The transport stays open on a failed handshake so
	// the client can retry with corrected credentials.
	if c.Hub.SessionFor(c) == nil {
		if msg.Type != "authenticate" {
			c.sendControl(domain.EventAuthError, "handshake required")
			return true
		}
		return c.handleAuthenticate(msg.Payload)
	}

	switch msg.Type {
	case "authenticate":
		// Re-handshake on a live connection replaces the session.
		return c.handleAuthenticate(msg.Payload)

	case "publish":
		c.handlePublish(msg.Payload)

	case "ping":
		// Client-side keep-alive, respond in-band
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
	return true
}

func (c *Client) handleAuthenticate(payload json.RawMessage) bool {
	var hs Handshake
	if err := json.Unmarshal(payload, &hs); err != nil {
		c.sendControl(domain.EventAuthError, "malformed handshake")
		return true
	}

	session, err := c.Hub.Authenticate(c, hs)
	if err != nil {
		c.sendControl(domain.EventAuthError, err.Error())
		return true
	}

	ack, _ := json.Marshal(map[string]string{
		"sessionId":   session.ID.String(),
		"userId":      session.UserID,
		"branchId":    session.BranchID,
		"role":        string(session.Role),
		"connectedAt": session.ConnectedAt.UTC().Format(time.RFC3339),
	})
	c.trySend(domain.Event{
		Type:      domain.EventAuthenticated,
		Payload:   ack,
		EmittedAt: time.Now().UTC(),
	})
	return true
}

func (c *Client) handlePublish(payload json.RawMessage) {
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Warn("failed to unmarshal publish payload", "error", err)
		return
	}

	if err := c.Hub.PublishFrom(c, event); err != nil {
		c.logger.Warn("client publish rejected",
			"event_type", event.Type,
			"error", err,
		)
	}
}

func (c *Client) sendControl(eventType domain.EventType, message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	c.trySend(domain.Event{
		Type:      eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
}

func (c *Client) sendPong() {
	c.trySend(domain.Event{Type: "pong", EmittedAt: time.Now().UTC()})
}

// trySend queues an event without blocking. It reports false when the
// buffer is full or the client has already been closed; either way the
// event is dropped rather than risking a send on a closed channel.
func (c *Client) trySend(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}
