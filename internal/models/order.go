package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus is the lifecycle status of an order. The normal path moves
// strictly forward: pending -> preparing -> ready -> delivering -> completed.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
)

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivering, OrderStatusCompleted:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status: %q", s)
	}
}

// PaymentMethod is how the customer settles the order.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentEWallet      PaymentMethod = "ewallet"
	PaymentCheque       PaymentMethod = "cheque"
)

// ParsePaymentMethod validates a raw payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentBankTransfer, PaymentEWallet, PaymentCheque:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("unknown payment method: %q", s)
	}
}

// OrderType distinguishes deliveries from pickups; derived from the address.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeTakeaway OrderType = "takeaway"
)

// OrderItem is one line of an order. The unit price is captured from the
// catalog at creation time; the order amount is locked to those prices and
// is not recomputed on later edits.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Note      string  `json:"note,omitempty"`
}

// OrderItems is stored as a JSONB column.
type OrderItems []OrderItem

// Value implements driver.Valuer for JSONB storage.
func (items OrderItems) Value() (driver.Value, error) {
	return json.Marshal(items)
}

// Scan implements sql.Scanner for JSONB storage.
func (items *OrderItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	case nil:
		*items = nil
		return nil
	default:
		return fmt.Errorf("cannot scan order items from %T", src)
	}
}

// Total returns the price-locked sum of the items.
func (items OrderItems) Total() float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Order is the aggregate root owned by the order store.
type Order struct {
	ID            string         `db:"id" json:"id"`
	CustomerName  string         `db:"customer_name" json:"customer_name"`
	CustomerPhone string         `db:"customer_phone" json:"customer_phone"`
	Address       string         `db:"address" json:"address,omitempty"`
	Items         OrderItems     `db:"items" json:"items"`
	Status        OrderStatus    `db:"status" json:"status"`
	Amount        float64        `db:"amount" json:"amount"`
	DueTime       string         `db:"due_time" json:"due_time,omitempty"`
	DriverID      *string        `db:"driver_id" json:"driver_id,omitempty"`
	PaymentMethod *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	Type          OrderType      `db:"order_type" json:"type"`
	Version       int64          `db:"version" json:"version"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderDraft is the input for creating an order.
type OrderDraft struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Address       string     `json:"address"`
	Items         OrderItems `json:"items"`
	DueTime       string     `json:"due_time"`
	PaymentMethod string     `json:"payment_method"`
}

// NewOrder builds a pending order from a draft. The caller is expected to have
// resolved item names and unit prices against the catalog already.
func NewOrder(draft *OrderDraft) *Order {
	now := GetCurrentTime()

	orderType := OrderTypeTakeaway
	if draft.Address != "" {
		orderType = OrderTypeDelivery
	}

	order := &Order{
		ID:            NewOrderNumber(),
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Address:       draft.Address,
		Items:         draft.Items,
		Status:        OrderStatusPending,
		Amount:        draft.Items.Total(),
		DueTime:       draft.DueTime,
		Type:          orderType,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if draft.PaymentMethod != "" {
		if pm, err := ParsePaymentMethod(draft.PaymentMethod); err == nil {
			order.PaymentMethod = &pm
		}
	}

	return order
}
