package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// Session is the identity a connection assumes after a successful
// handshake. It exists only for the lifetime of the connection.
type Session struct {
	ID          uuid.UUID
	UserID      string
	BranchID    string
	Role        domain.Role
	ConnectedAt time.Time
}

// Handshake is the first message a client must send after connecting.
type Handshake struct {
	UserID   string `json:"userId"`
	BranchID string `json:"branchId"`
	Role     string `json:"role"`
}

// Validate checks the handshake fields before a session is created.
func (h Handshake) Validate() error {
	if h.UserID == "" {
		return apperrors.ErrHandshakeUserRequired
	}
	if h.BranchID == "" {
		return apperrors.ErrHandshakeBranchRequired
	}
	if h.Role == "" {
		return apperrors.ErrHandshakeRoleRequired
	}
	if !domain.Role(h.Role).IsValid() {
		return apperrors.ErrUnknownRole
	}
	return nil
}

// Hub maintains the set of active Clients and fans events out to them.
// Events are dispatched from a single loop, so every client sees events
// for its channels in publish order.
type Hub struct {
	// branches maps branch IDs to the clients subscribed to that branch
	branches map[string]map[*Client]bool

	// users maps user IDs to that user's connections
	// A single user can have multiple connections (multiple tabs/devices)
	users map[string]map[*Client]bool

	// sessions holds the handshake identity of each authenticated client
	sessions map[*Client]*Session

	// publish channel for events
	publish chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// authzSvc gates handshakes and client publishes
	authzSvc ports.AuthorizationService

	// mu protects the membership maps
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// Capability names the hub checks against the authorization service.
const (
	capRealtimeConnect = "realtime:connect"
	capEventsPublish   = "events:publish"
)

// NewHub creates a new WebSocket hub
func NewHub(authzSvc ports.AuthorizationService, logger *slog.Logger) *Hub {
	return &Hub{
		branches:   make(map[string]map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		sessions:   make(map[*Client]*Session),
		publish:    make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		authzSvc:   authzSvc,
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Publish queues an event for fan-out. Delivery is at-most-once and
// never blocks the caller: if the hub's queue is full the event is
// dropped and logged.
func (h *Hub) Publish(event domain.Event) {
	if err := event.Validate(); err != nil {
		h.logger.Warn("rejecting event at ingress",
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	select {
	case h.publish <- event:
	default:
		h.logger.Warn("publish channel full, dropping event",
			"event_type", event.Type,
			"branch_id", event.BranchID,
		)
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.publish:
			h.fanOut(event)
		}
	}
}

// registerClient admits a connection. The client joins no channels until
// its handshake is accepted.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[client] = nil

	h.logger.Info("client connected", "total_clients", len(h.sessions))
}

// Authenticate validates the handshake and binds the client to its
// branch and user channels. A second handshake on the same connection
// replaces the previous session membership.
func (h *Hub) Authenticate(client *Client, hs Handshake) (*Session, error) {
	if err := hs.Validate(); err != nil {
		return nil, err
	}

	role := domain.Role(hs.Role)
	if !h.authzSvc.Can(role, capRealtimeConnect) {
		return nil, apperrors.ErrForbidden
	}

	session := &Session{
		ID:          uuid.New(),
		UserID:      hs.UserID,
		BranchID:    hs.BranchID,
		Role:        role,
		ConnectedAt: time.Now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := h.sessions[client]; prev != nil {
		h.leaveChannelsLocked(client, prev)
	}

	h.sessions[client] = session

	if h.branches[session.BranchID] == nil {
		h.branches[session.BranchID] = make(map[*Client]bool)
	}
	h.branches[session.BranchID][client] = true

	if h.users[session.UserID] == nil {
		h.users[session.UserID] = make(map[*Client]bool)
	}
	h.users[session.UserID][client] = true

	h.logger.Info("session authenticated",
		"session_id", session.ID,
		"user_id", session.UserID,
		"branch_id", session.BranchID,
		"role", session.Role,
	)

	return session, nil
}

// SessionFor returns the client's session, or nil before the handshake.
func (h *Hub) SessionFor(client *Client) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[client]
}

// PublishFrom publishes a client-originated event. The event is stamped
// with the session's branch so a client can never inject into another
// branch's channel.
func (h *Hub) PublishFrom(client *Client, event domain.Event) error {
	session := h.SessionFor(client)
	if session == nil {
		return apperrors.ErrNotAuthenticated
	}
	if !h.authzSvc.Can(session.Role, capEventsPublish) {
		return apperrors.ErrForbidden
	}

	event.BranchID = session.BranchID
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	h.Publish(event)
	return nil
}

// unregisterClient removes a client from the hub and all channels
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, tracked := h.sessions[client]
	if !tracked {
		return
	}

	if session != nil {
		h.leaveChannelsLocked(client, session)
	}
	delete(h.sessions, client)

	client.CloseSend()

	h.logger.Info("client disconnected",
		"authenticated", session != nil,
	)
}

func (h *Hub) leaveChannelsLocked(client *Client, session *Session) {
	if branch, ok := h.branches[session.BranchID]; ok {
		delete(branch, client)
		if len(branch) == 0 {
			delete(h.branches, session.BranchID)
		}
	}
	if user, ok := h.users[session.UserID]; ok {
		delete(user, client)
		if len(user) == 0 {
			delete(h.users, session.UserID)
		}
	}
}

// fanOut delivers an event to every session in the target branch. The
// originator is not excluded; its console converges through the same
// path as everyone else's.
func (h *Hub) fanOut(event domain.Event) {
	h.mu.RLock()
	branch, ok := h.branches[event.BranchID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(branch))
	for client := range branch {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("fanning out event",
		"event_type", event.Type,
		"branch_id", event.BranchID,
		"client_count", len(clients),
	)

	var stalled []*Client
	for _, client := range clients {
		if !client.trySend(event) {
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"branch_id", event.BranchID,
			)
			stalled = append(stalled, client)
		}
	}

	// Unregister directly: fanOut runs on the dispatch goroutine, so
	// sending to the Unregister channel here would block forever.
	for _, client := range stalled {
		h.unregisterClient(client)
	}
}

// SendToUser sends an event directly to a specific user (all their
// connections), bypassing branch routing.
func (h *Hub) SendToUser(userID string, event domain.Event) {
	h.mu.RLock()
	conns, ok := h.users[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clientList := make([]*Client, 0, len(conns))
	for client := range conns {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		// Buffer full or already closed, skip this connection
		client.trySend(event)
	}
}

// GetClientCount returns the total number of connections known to the hub
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetBranchCount returns the number of branches with live sessions
func (h *Hub) GetBranchCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.branches)
}

// GetClientsInBranch returns the number of sessions in a branch channel
func (h *Hub) GetClientsInBranch(branchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if branch, ok := h.branches[branchID]; ok {
		return len(branch)
	}
	return 0
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.users[userID]
	return ok && len(conns) > 0
}
