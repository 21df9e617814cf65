package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Transaction events
	EventTransactionCompleted = "trace.transaction.completed"
	EventTransactionDeleted   = "trace.transaction.deleted"

	// Lot code events
	EventLotCodeAssigned = "trace.lotcode.assigned"

	// Inventory events
	EventBalanceAdjusted = "trace.balance.adjusted"
)

// Exchange names
const (
	ExchangeTraceEvents = "trace.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// TransactionCompletedEvent is published when a receiving or shipment
// reaches Completed status.
type TransactionCompletedEvent struct {
	Table       string `json:"table"`
	RecordID    int64  `json:"record_id"`
	Ticket      string `json:"ticket"`
	LotCode     string `json:"lot_code,omitempty"`
	WarehouseID int64  `json:"warehouse_id"`
	ProductID   int64  `json:"product_id"`
	NetWeight   string `json:"net_weight"`
	PerformedBy string `json:"performed_by,omitempty"`
}

// TransactionDeletedEvent is published when a transaction is permanently removed.
type TransactionDeletedEvent struct {
	Table       string `json:"table"`
	RecordID    int64  `json:"record_id"`
	Ticket      string `json:"ticket"`
	LotCode     string `json:"lot_code,omitempty"`
	PerformedBy string `json:"performed_by,omitempty"`
}

// LotCodeAssignedEvent is published when a lot code is attached to a
// completed transaction.
type LotCodeAssignedEvent struct {
	Table       string `json:"table"`
	RecordID    int64  `json:"record_id"`
	LotCode     string `json:"lot_code"`
	Consecutive int    `json:"consecutive"`
	Year        int    `json:"year"`
}

// BalanceAdjustedEvent is published when a warehouse/product balance changes.
type BalanceAdjustedEvent struct {
	WarehouseID int64  `json:"warehouse_id"`
	ProductID   int64  `json:"product_id"`
	Delta       string `json:"delta"`
	NewBalance  string `json:"new_balance"`
	Clamped     bool   `json:"clamped"`
}
