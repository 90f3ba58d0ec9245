package amqp

import (
	"encoding/json"
	"time"

	"chitieu/internal/ledger"
)

// LedgerEventMessage is the wire form of a ledger change. It names what
// changed, not the new state; consumers read the ledger for that.
type LedgerEventMessage struct {
	Op        string    `json:"op"`
	Mode      string    `json:"mode"`
	Key       string    `json:"key"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &LedgerEventMessage{
		Op:        ev.Op,
		Mode:      string(ev.Mode),
		Key:       ev.Key,
		ExpenseID: ev.ExpenseID,
		Count:     ev.Count,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
