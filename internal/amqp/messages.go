package amqp

import (
	"encoding/json"
	"time"
)

// OrderSyncMessage asks the worker to mirror one order to the spreadsheet.
// It carries only the ID; the worker fetches the current row from storage,
// so a burst of updates to the same order collapses to its latest state.
type OrderSyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOrderSyncMessage(id int64) *OrderSyncMessage {
	return &OrderSyncMessage{ID: id, Timestamp: time.Now()}
}

func (m *OrderSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OrderSyncMessageFromJSON(data []byte) (*OrderSyncMessage, error) {
	var msg OrderSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// OrderDeleteMessage asks the worker to remove an order row from the
// spreadsheet. The local row is already gone, so the ID is all there is.
type OrderDeleteMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOrderDeleteMessage(id int64) *OrderDeleteMessage {
	return &OrderDeleteMessage{ID: id, Timestamp: time.Now()}
}

func (m *OrderDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OrderDeleteMessageFromJSON(data []byte) (*OrderDeleteMessage, error) {
	var msg OrderDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Envelope tags a message body with its kind so both message types can
// share one queue.
type Envelope struct {
	Kind string          `json:"kind"` // "sync" or "delete"
	Body json.RawMessage `json:"body"`
}

const (
	KindSync   = "sync"
	KindDelete = "delete"
)

func NewEnvelope(kind string, body []byte) ([]byte, error) {
	return json.Marshal(Envelope{Kind: kind, Body: body})
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
