package orders

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	OrderID     int64           `json:"order_id"`
	TenantID    int64           `json:"tenant_id"`
	UserID      *int64          `json:"user_id,omitempty"`
	Email       string          `json:"email,omitempty"`
	Items       []Item          `json:"items"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Address     string          `json:"address"`
	PhoneNumber string          `json:"phone_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CreatedAt   Timestamp       `json:"created_at"`
}

// Submission is the create-order body. Email and TenantID are only sent for guests.
type Submission struct {
	Items       []Item `json:"items"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	TenantID    int64  `json:"tenant_id,omitempty"`
}

// Timestamp accepts RFC 3339 and the zone-less ISO form the API emits, read as UTC.
type Timestamp struct {
	time.Time
}

const isoNoZone = "2006-01-02T15:04:05.999999999"

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(isoNoZone, s, time.UTC)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
