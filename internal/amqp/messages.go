package amqp

import (
	"encoding/json"
	"time"
)

// Operations reported in LoansChangedMessage.
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpUpdate = "update"
	OpImport = "import"
)

// LoansChangedMessage announces that the stored loan collection changed.
// It carries no loan data; consumers reload the collection from storage.
type LoansChangedMessage struct {
	Revision  int64     `json:"revision"`
	Operation string    `json:"operation"`
	LoanCount int       `json:"loanCount"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLoansChangedMessage(revision int64, operation string, loanCount int) *LoansChangedMessage {
	return &LoansChangedMessage{
		Revision:  revision,
		Operation: operation,
		LoanCount: loanCount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LoansChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LoansChangedMessageFromJSON(data []byte) (*LoansChangedMessage, error) {
	var msg LoansChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
