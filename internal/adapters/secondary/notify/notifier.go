package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hpos/callcenter-backend/internal/adapters/primary/websocket"
	"github.com/hpos/callcenter-backend/internal/core/domain"
	"github.com/hpos/callcenter-backend/internal/core/ports"
)

// HubNotifier delivers targeted notifications over the user's live
// WebSocket connections. Users without an active connection miss the
// notification; delivery is at-most-once.
type HubNotifier struct {
	hub    *websocket.Hub
	logger *slog.Logger
}

var _ ports.Notifier = (*HubNotifier)(nil)

// NewHubNotifier creates a notifier backed by the broadcast hub.
func NewHubNotifier(hub *websocket.Hub, logger *slog.Logger) *HubNotifier {
	return &HubNotifier{
		hub:    hub,
		logger: logger.With("component", "notifier"),
	}
}

// Notify wraps the message in a notification event and sends it to every
// connection the user currently holds.
func (n *HubNotifier) Notify(ctx context.Context, userID string, notification domain.NotificationMessage) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	event := domain.Event{
		Type:      domain.EventNotification,
		EntityID:  notification.ID,
		EmittedAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error("failed to encode notification", "user_id", userID, "error", err)
		return
	}
	event.Payload = raw

	if !n.hub.IsUserConnected(userID) {
		n.logger.Debug("notification dropped, user offline",
			"user_id", userID,
			"notification_type", notification.Type,
		)
		return
	}

	n.hub.SendToUser(userID, event)
}
