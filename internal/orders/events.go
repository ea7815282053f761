package orders

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderSubmitted     = "OrderSubmitted"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderDeleted       = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderSubmittedPayload struct {
	OrderID     int64           `json:"order_id"`
	TenantID    int64           `json:"tenant_id"`
	Guest       bool            `json:"guest"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderStatusChangedPayload struct {
	OrderID  int64  `json:"order_id"`
	TenantID int64  `json:"tenant_id"`
	From     Status `json:"from"`
	To       Status `json:"to"`
	Items    []Item `json:"items,omitempty"`
}

type OrderDeletedPayload struct {
	OrderID  int64  `json:"order_id"`
	TenantID int64  `json:"tenant_id"`
	Status   Status `json:"status"`
}

// NewEnvelope wraps payload as version 1 of eventType.
func NewEnvelope(eventType, producer, traceID string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       b,
	}, nil
}
