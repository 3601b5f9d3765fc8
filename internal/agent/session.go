package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

const (
	initialBackoff       = time.Second
	maxBackoff           = 5 * time.Second
	maxReconnectAttempts = 5

	handshakeTimeout = 10 * time.Second
	emitTimeout      = 10 * time.Second
	eventBufferSize  = 256
)

// handshake is the first frame sent on every connection.
type handshake struct {
	UserID   string `json:"userId"`
	BranchID string `json:"branchId"`
	Role     string `json:"role"`
}

// outbound is the client-to-server message envelope.
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// SessionManager owns the console's real-time connection: it dials the
// broadcast server, performs the authentication handshake, recovers from
// transient network loss, and surfaces received events on a channel.
//
// Connections are never resumed. Every reconnect is a brand-new session and
// resends the handshake; events missed while disconnected are gone.
type SessionManager struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
	events chan domain.Event

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	hs     handshake

	// gen identifies the current session. Each Connect bumps it, so a
	// superseded run goroutine can no longer touch conn or connected.
	gen uint64

	connected atomic.Bool
}

// NewSessionManager creates a manager for the given WebSocket URL.
func NewSessionManager(url string, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "session_manager"),
		events: make(chan domain.Event, eventBufferSize),
	}
}

// Events returns the channel carrying received domain events. The channel is
// buffered; if the consumer falls behind, events are dropped.
func (m *SessionManager) Events() <-chan domain.Event {
	return m.events
}

// Connected reports whether a live, authenticated connection is held.
func (m *SessionManager) Connected() bool {
	return m.connected.Load()
}

// Connect establishes a new authenticated session, tearing down any previous
// connection first. It blocks until the handshake is acknowledged or
// rejected; a rejection is terminal for this attempt and is not retried.
func (m *SessionManager) Connect(ctx context.Context, userID, branchID string, role domain.Role) error {
	m.Disconnect()

	hs := handshake{UserID: userID, BranchID: branchID, Role: string(role)}

	conn, err := m.dialAndAuthenticate(ctx, hs)
	if err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.hs = hs
	m.conn = conn
	m.cancel = cancel
	m.connected.Store(true)
	m.mu.Unlock()

	go m.run(sessionCtx, conn, gen)
	return nil
}

// Disconnect closes the current connection and cancels any pending
// reconnection. It is safe to call at any time, repeatedly.
func (m *SessionManager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.connected.Store(false)
}

// Emit publishes an event through the live session. On a disconnected
// manager it is a logged no-op returning ErrNotConnected; callers observe
// Connected() rather than handling transport errors.
func (m *SessionManager) Emit(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || !m.connected.Load() {
		m.logger.Debug("emit while disconnected, dropping event", "event_type", event.Type)
		return apperrors.ErrNotConnected
	}

	if err := m.conn.SetWriteDeadline(time.Now().Add(emitTimeout)); err != nil {
		return err
	}
	return m.conn.WriteJSON(outbound{Type: "publish", Payload: event})
}

// dialAndAuthenticate opens the transport and performs the handshake as the
// first exchange, returning the connection only once the server has
// acknowledged the session.
func (m *SessionManager) dialAndAuthenticate(ctx context.Context, hs handshake) (*websocket.Conn, error) {
	conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return nil, err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(outbound{Type: "authenticate", Payload: hs}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	var ack domain.Event
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := json.Unmarshal(message, &ack); err != nil {
			continue
		}
		break
	}

	switch ack.Type {
	case domain.EventAuthenticated:
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil

	case domain.EventAuthError:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotAuthenticated, authErrorMessage(ack.Payload))

	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected handshake response %q", ack.Type)
	}
}

// run reads events until the connection drops, then applies the reconnect
// policy. It exits when Disconnect cancels the session or when reconnection
// gives up.
func (m *SessionManager) run(ctx context.Context, conn *websocket.Conn, gen uint64) {
	for {
		m.readUntilError(conn)

		m.setConnected(gen, false)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		next, err := m.reconnect(ctx)
		if err != nil {
			m.logger.Warn("reconnection abandoned", "error", err)
			return
		}

		if !m.adoptConn(ctx, gen, next) {
			// Disconnect or a newer Connect won the race while the
			// handshake was in flight.
			_ = next.Close()
			return
		}

		conn = next
	}
}

// setConnected flips the connected flag, unless the session owning gen has
// been superseded by a newer Connect.
func (m *SessionManager) setConnected(gen uint64, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.connected.Store(up)
}

// adoptConn installs a freshly authenticated connection. It refuses when the
// session was cancelled or superseded while the handshake was in flight, so
// an explicit Disconnect can never be overtaken by a late reconnect.
func (m *SessionManager) adoptConn(ctx context.Context, gen uint64, conn *websocket.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || ctx.Err() != nil {
		return false
	}
	m.conn = conn
	m.connected.Store(true)
	return true
}

func (m *SessionManager) readUntilError(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event domain.Event
		if err := json.Unmarshal(message, &event); err != nil {
			m.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		// Control frames stay on the connection; only domain events reach
		// the store.
		if !event.Type.IsRoutable() {
			continue
		}

		select {
		case m.events <- event:
		default:
			m.logger.Warn("event buffer full, dropping event", "event_type", event.Type)
		}
	}
}

// reconnect retries the dial-and-handshake with bounded exponential backoff:
// 1s doubling to a 5s cap, at most 5 attempts. An authentication rejection
// stops retrying immediately; corrected credentials require a new Connect.
func (m *SessionManager) reconnect(ctx context.Context) (*websocket.Conn, error) {
	m.mu.Lock()
	hs := m.hs
	m.mu.Unlock()

	backoff := initialBackoff
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		conn, err := m.dialAndAuthenticate(ctx, hs)
		if err == nil {
			m.logger.Info("reconnected", "attempt", attempt)
			return conn, nil
		}
		if errors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, err
		}

		m.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, fmt.Errorf("exhausted %d reconnect attempts", maxReconnectAttempts)
}

func authErrorMessage(payload json.RawMessage) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Message == "" {
		return "handshake rejected"
	}
	return body.Message
}
