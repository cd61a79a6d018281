package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPartnerCreated EventType = "partner_created"
	EventPartnerRemoved EventType = "partner_removed"
	EventTaskCreated    EventType = "task_created"
	EventFundsReceived  EventType = "funds_received"
	EventBurned         EventType = "burned"
	EventRoleGranted    EventType = "role_granted"
	EventRoleRevoked    EventType = "role_revoked"
)

// Event is an append-only record of an accepted mutation.
// Only the fields relevant to Type are populated.
type Event struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	TaskID  *uint64   `json:"task_id,omitempty"`
	Partner PartnerID `json:"partner,omitempty"`
	Amount  uint64    `json:"amount,omitempty"`

	TimelockEndTime *time.Time `json:"timelock_end_time,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	BTCAddress      string     `json:"btc_address,omitempty"`

	TxHash        *TxHash  `json:"tx_hash,omitempty"`
	TxOut         *uint32  `json:"tx_out,omitempty"`
	WitnessScript HexBytes `json:"witness_script,omitempty"`

	// Forced marks a Burned event produced by the administrative override.
	Forced bool `json:"forced,omitempty"`

	Role    Role     `json:"role,omitempty"`
	Account Identity `json:"account,omitempty"`
	Caller  Identity `json:"caller,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run after an operation commits, except OnRejected which runs on failure.
type LifecycleHooks struct {
	OnPartnerCreated func(context.Context, *Event)
	OnPartnerRemoved func(context.Context, *Event)
	OnTaskCreated    func(context.Context, *Event)
	OnFundsReceived  func(context.Context, *Event)
	OnBurned         func(context.Context, *Event)
	OnRejected       func(ctx context.Context, op string, err error)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPartnerCreated: chain(h.OnPartnerCreated, other.OnPartnerCreated),
		OnPartnerRemoved: chain(h.OnPartnerRemoved, other.OnPartnerRemoved),
		OnTaskCreated:    chain(h.OnTaskCreated, other.OnTaskCreated),
		OnFundsReceived:  chain(h.OnFundsReceived, other.OnFundsReceived),
		OnBurned:         chain(h.OnBurned, other.OnBurned),
		OnRejected: func(ctx context.Context, op string, err error) {
			if h.OnRejected != nil {
				h.OnRejected(ctx, op, err)
			}
			if other.OnRejected != nil {
				other.OnRejected(ctx, op, err)
			}
		},
	}
}

func chain(a, b func(context.Context, *Event)) func(context.Context, *Event) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *Event) {
		a(ctx, e)
		b(ctx, e)
	}
}
