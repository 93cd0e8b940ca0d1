package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const UnknownCustomer = "Unknown"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists for payment")
	// ErrPlacementRejected wraps business-rule failures raised by place_order,
	// such as insufficient stock.
	ErrPlacementRejected = errors.New("order placement rejected")
)

type OrderStatus string

const OrderStatusPlaced OrderStatus = "PLACED"

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type Order struct {
	ID              string
	PaymentID       string
	CreatedBy       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	FranchiseID     string
	Items           []OrderItem
	TotalAmount     float64
	Status          OrderStatus
	CreatedAt       time.Time
}

// PlaceOrderParams are the arguments of the place_order procedure.
type PlaceOrderParams struct {
	CreatedBy       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	FranchiseID     string
	PaymentID       string
	Items           []OrderItem
}

// ParseItems decodes the JSON-encoded items note. The returned slice is never
// nil; on error it is empty and the error describes the malformed input.
func ParseItems(raw string) ([]OrderItem, error) {
	items := []OrderItem{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []OrderItem{}, fmt.Errorf("malformed items note: %w", err)
	}
	if items == nil {
		items = []OrderItem{}
	}
	return items, nil
}

// NewPlaceOrderParams extracts order details from a captured-payment
// notification. Missing fields fall back to placeholders; an item parse
// error is returned alongside usable params carrying an empty item list.
func NewPlaceOrderParams(n *Notification) (PlaceOrderParams, error) {
	entity := n.Payload.Payment.Entity
	notes := entity.Notes

	items, itemsErr := ParseItems(notes.Items)

	params := PlaceOrderParams{
		CreatedBy:       notes.UserID,
		CustomerName:    firstNonEmpty(notes.CustomerName, UnknownCustomer),
		CustomerEmail:   firstNonEmpty(notes.CustomerEmail, entity.Email),
		CustomerPhone:   firstNonEmpty(notes.CustomerPhone, entity.Contact),
		CustomerAddress: notes.CustomerAddress,
		FranchiseID:     notes.FranchiseID,
		PaymentID:       entity.ID,
		Items:           items,
	}
	return params, itemsErr
}

func (p PlaceOrderParams) Total() float64 {
	var total float64
	for _, item := range p.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func (p PlaceOrderParams) ItemsJSON() ([]byte, error) {
	if p.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Items)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
