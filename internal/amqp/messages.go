package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that a ledger mutation was committed.
// Ref is the affected transaction id or category name; empty for a reset.
// Consumers re-read the ledger instead of relying on message contents.
type LedgerChangedMessage struct {
	Operation string    `json:"operation"`
	Ref       string    `json:"ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(operation, ref string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Operation: operation,
		Ref:       ref,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
