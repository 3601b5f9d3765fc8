package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

func TestCallStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from domain.CallStatus
		to   domain.CallStatus
		want bool
	}{
		{"incoming to connected", domain.CallIncoming, domain.CallConnected, true},
		{"incoming to missed", domain.CallIncoming, domain.CallMissed, true},
		{"incoming to ended", domain.CallIncoming, domain.CallEnded, false},
		{"incoming to on_hold", domain.CallIncoming, domain.CallOnHold, false},
		{"connected to on_hold", domain.CallConnected, domain.CallOnHold, true},
		{"connected to ended", domain.CallConnected, domain.CallEnded, true},
		{"connected to missed", domain.CallConnected, domain.CallMissed, false},
		{"on_hold resumes to connected", domain.CallOnHold, domain.CallConnected, true},
		{"on_hold to ended", domain.CallOnHold, domain.CallEnded, true},
		{"ended is terminal", domain.CallEnded, domain.CallConnected, false},
		{"missed is terminal", domain.CallMissed, domain.CallConnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCall_Transition(t *testing.T) {
	call := &domain.Call{ID: "C1", CustomerID: "CUST-001", Status: domain.CallIncoming}

	assert.NoError(t, call.Transition(domain.CallConnected))
	assert.Equal(t, domain.CallConnected, call.Status)

	assert.NoError(t, call.Transition(domain.CallOnHold))
	assert.NoError(t, call.Transition(domain.CallConnected))
	assert.NoError(t, call.Transition(domain.CallEnded))

	err := call.Transition(domain.CallConnected)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	assert.Equal(t, domain.CallEnded, call.Status)

	err = call.Transition(domain.CallStatus("ringing"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestCall_DurationAt(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Second)

	tests := []struct {
		name   string
		status domain.CallStatus
		want   time.Duration
	}{
		{"connected call ticks", domain.CallConnected, 90 * time.Second},
		{"held call keeps ticking", domain.CallOnHold, 90 * time.Second},
		{"incoming call has no duration", domain.CallIncoming, 0},
		{"ended call has no duration", domain.CallEnded, 0},
		{"missed call has no duration", domain.CallMissed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &domain.Call{ID: "C1", Status: tt.status, CreatedAt: started}
			assert.Equal(t, tt.want, call.DurationAt(now))
		})
	}
}
