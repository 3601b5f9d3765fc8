package domain

import (
	"time"

	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

// CallStatus represents the possible states of a customer call.
type CallStatus string

const (
	CallIncoming  CallStatus = "incoming"
	CallConnected CallStatus = "connected"
	CallOnHold    CallStatus = "on_hold"
	CallEnded     CallStatus = "ended"
	CallMissed    CallStatus = "missed"
)

// IsValid reports whether the status is a known call status.
func (s CallStatus) IsValid() bool {
	switch s {
	case CallIncoming, CallConnected, CallOnHold, CallEnded, CallMissed:
		return true
	}
	return false
}

// IsTerminal reports whether the call has finished.
func (s CallStatus) IsTerminal() bool {
	return s == CallEnded || s == CallMissed
}

// callTransitions defines the valid call state transitions. A call that is
// never answered goes straight from incoming to missed.
var callTransitions = map[CallStatus][]CallStatus{
	CallIncoming:  {CallConnected, CallMissed},
	CallConnected: {CallOnHold, CallEnded},
	CallOnHold:    {CallConnected, CallEnded},
	CallEnded:     {},
	CallMissed:    {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	for _, allowed := range callTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Call is a customer call visible in the branch call queue.
type Call struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	OrderID    string     `json:"orderId,omitempty"`
	AgentID    string     `json:"agentId,omitempty"`
	Status     CallStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Transition moves the call to the next status, enforcing the lifecycle.
func (c *Call) Transition(next CallStatus) error {
	if !next.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if !c.Status.CanTransitionTo(next) {
		return apperrors.ErrInvalidStatusTransition
	}
	c.Status = next
	return nil
}

// DurationAt derives how long the call has been live at the given instant.
// It is recomputed on every read while the call is connected or on hold;
// nothing ticks in stored state.
func (c *Call) DurationAt(now time.Time) time.Duration {
	switch c.Status {
	case CallConnected, CallOnHold:
		return now.Sub(c.CreatedAt)
	default:
		return 0
	}
}
