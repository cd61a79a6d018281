package domain

import (
	"fmt"
	"time"
)

// TaskState is the lifecycle position of a Task.
// The zero value is reserved and never assigned by the engine.
type TaskState uint8

const (
	TaskStateUnset     TaskState = 0
	TaskStateCreated   TaskState = 1 // Awaiting a relayer-reported deposit
	TaskStateFulfilled TaskState = 2 // Deposit verified, partner credited
	TaskStateBurned    TaskState = 3 // Finalized, partner balance burned
)

// String returns the lowercase name of the state.
func (s TaskState) String() string {
	switch s {
	case TaskStateCreated:
		return "created"
	case TaskStateFulfilled:
		return "fulfilled"
	case TaskStateBurned:
		return "burned"
	default:
		return fmt.Sprintf("unset(%d)", uint8(s))
	}
}

// Valid reports whether s is a state the engine can produce.
func (s TaskState) Valid() bool {
	return s >= TaskStateCreated && s <= TaskStateBurned
}

// Task is a single bridging request.
// ID, Partner, Amount, BTCAddress, TimelockEndTime and Deadline are fixed at creation.
// TxHash, TxOut and WitnessScript are zero until fulfillment and set exactly once.
type Task struct {
	ID              uint64    `json:"id"`
	Partner         PartnerID `json:"partner"`
	State           TaskState `json:"state"`
	TimelockEndTime time.Time `json:"timelock_end_time"`
	Deadline        time.Time `json:"deadline"`
	Amount          uint64    `json:"amount"`
	BTCAddress      string    `json:"btc_address"`
	TxHash          TxHash    `json:"tx_hash"`
	TxOut           uint32    `json:"tx_out"`
	WitnessScript   HexBytes  `json:"witness_script,omitempty"`
}

// Clone returns a copy that shares no mutable memory with t.
func (t Task) Clone() Task {
	if t.WitnessScript != nil {
		t.WitnessScript = append(HexBytes(nil), t.WitnessScript...)
	}
	return t
}
