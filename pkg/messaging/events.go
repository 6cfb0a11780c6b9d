package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock ledger events
	EventStockAdjusted = "inventory.stock.adjusted"
	EventAlertChanged  = "inventory.alert.changed"

	// Transfer workflow events
	EventTransferRequested = "inventory.transfer.requested"
	EventTransferApproved  = "inventory.transfer.approved"
	EventTransferRejected  = "inventory.transfer.rejected"
	EventTransferCompleted = "inventory.transfer.completed"

	// Expiry and disposal events
	EventItemExpired  = "inventory.item.expired"
	EventItemDisposed = "inventory.item.disposed"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
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
		ID:            GenerateEventID(),
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

// StockAdjustedEvent is published after every committed quantity change.
// Quantities travel as decimal strings to avoid float drift in consumers.
type StockAdjustedEvent struct {
	ItemID      string `json:"item_id"`
	SectionID   string `json:"section_id"`
	ItemCode    string `json:"item_code"`
	Delta       string `json:"delta"`
	NewQuantity string `json:"new_quantity"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

// AlertChangedEvent is published when a mutation moved an item to a
// different alert classification. Notification delivery is the consumer's
// concern.
type AlertChangedEvent struct {
	ItemID         string `json:"item_id"`
	SectionID      string `json:"section_id"`
	ItemCode       string `json:"item_code"`
	ItemName       string `json:"item_name"`
	PrevStockAlert string `json:"prev_stock_alert"`
	StockAlert     string `json:"stock_alert"`
	PrevExpiryAlert string `json:"prev_expiry_alert"`
	ExpiryAlert    string `json:"expiry_alert"`
	Quantity       string `json:"quantity"`
}

// TransferRequestedEvent is published when a transfer is created
type TransferRequestedEvent struct {
	TransferID     string `json:"transfer_id"`
	TransferNumber string `json:"transfer_number"`
	ItemCode       string `json:"item_code"`
	FromSectionID  string `json:"from_section_id"`
	ToSectionID    string `json:"to_section_id"`
	Quantity       string `json:"quantity"`
	RequestedBy    string `json:"requested_by"`
}

// TransferDecidedEvent is published on approve and reject
type TransferDecidedEvent struct {
	TransferID     string `json:"transfer_id"`
	TransferNumber string `json:"transfer_number"`
	Status         string `json:"status"`
	DecidedBy      string `json:"decided_by"`
	Reason         string `json:"reason,omitempty"`
}

// TransferCompletedEvent is published after both ledger legs committed
type TransferCompletedEvent struct {
	TransferID     string `json:"transfer_id"`
	TransferNumber string `json:"transfer_number"`
	ItemCode       string `json:"item_code"`
	FromSectionID  string `json:"from_section_id"`
	ToSectionID    string `json:"to_section_id"`
	Quantity       string `json:"quantity"`
	TransferredBy  string `json:"transferred_by"`
}

// ItemExpiredEvent is published when an item transitions to expired
type ItemExpiredEvent struct {
	ItemID     string     `json:"item_id"`
	SectionID  string     `json:"section_id"`
	ItemCode   string     `json:"item_code"`
	ItemName   string     `json:"item_name"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// ItemDisposedEvent is published when disposal quantity is written off
type ItemDisposedEvent struct {
	ItemID           string `json:"item_id"`
	SectionID        string `json:"section_id"`
	ItemCode         string `json:"item_code"`
	DisposedQuantity string `json:"disposed_quantity"`
	Reason           string `json:"reason"`
	FullyDisposed    bool   `json:"fully_disposed"`
	PerformedBy      string `json:"performed_by"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
