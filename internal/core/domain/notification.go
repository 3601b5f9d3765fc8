package domain

import "time"

// NotificationType classifies console notifications.
type NotificationType string

const (
	NotifyOrderCreated    NotificationType = "order_created"
	NotifyOrderUpdated    NotificationType = "order_updated"
	NotifyPaymentReceived NotificationType = "payment_received"
	NotifyPaymentFailed   NotificationType = "payment_failed"
	NotifyInventoryLow    NotificationType = "inventory_low"
	NotifyCustomerCall    NotificationType = "customer_call"
	NotifySystemAlert     NotificationType = "system_alert"
)

// Notification is a console-facing notification. Notifications are derived
// locally from incoming domain events; IsRead is per-session state and is
// never synchronized across sessions.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}
