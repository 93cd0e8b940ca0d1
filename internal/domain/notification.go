package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

const EventPaymentCaptured = "payment.captured"

var ErrInvalidNotification = errors.New("invalid payment notification")

// Notification is the webhook body delivered by the payment provider.
type Notification struct {
	Event   string              `json:"event"`
	Payload NotificationPayload `json:"payload"`
}

type NotificationPayload struct {
	Payment PaymentEnvelope `json:"payment"`
}

type PaymentEnvelope struct {
	Entity PaymentEntity `json:"entity"`
}

type PaymentEntity struct {
	ID      string       `json:"id"`
	Email   string       `json:"email"`
	Contact string       `json:"contact"`
	Notes   PaymentNotes `json:"notes"`
}

// PaymentNotes holds the order context the storefront attached to the payment.
type PaymentNotes struct {
	UserID          string `json:"user_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	FranchiseID     string `json:"franchise_id"`
	Items           string `json:"items"`
}

// UnmarshalJSON accepts the provider's loose notes encoding: an object whose
// values may be strings, numbers or nested JSON, or an empty array when the
// payment carries no notes.
func (n *PaymentNotes) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		var list []any
		if listErr := json.Unmarshal(data, &list); listErr == nil {
			*n = PaymentNotes{}
			return nil
		}
		return err
	}

	*n = PaymentNotes{
		UserID:          noteString(raw["user_id"]),
		CustomerName:    noteString(raw["customer_name"]),
		CustomerEmail:   noteString(raw["customer_email"]),
		CustomerPhone:   noteString(raw["customer_phone"]),
		CustomerAddress: noteString(raw["customer_address"]),
		FranchiseID:     noteString(raw["franchise_id"]),
		Items:           noteString(raw["items"]),
	}
	return nil
}

func noteString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ParseNotification decodes a raw webhook body.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, errors.Join(ErrInvalidNotification, err)
	}
	return &n, nil
}

func (n *Notification) PaymentID() string {
	return n.Payload.Payment.Entity.ID
}

func (n *Notification) IsPaymentCaptured() bool {
	return n.Event == EventPaymentCaptured
}
