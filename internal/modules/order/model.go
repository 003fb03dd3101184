package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

// OrderItem is one line of an order. PriceAtTime is the per-unit price
// snapshot taken when the order was placed; it is never recomputed from the
// live catalog.
type OrderItem struct {
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	PriceAtTime float64   `json:"price_at_time"`
}

// Order is an immutable-once-placed purchase record. After creation only
// Status and PaymentStatus change; orders are never deleted.
type Order struct {
	ID              uuid.UUID    `json:"id"`
	OrderID         string       `json:"order_id"`
	CustomerID      uuid.UUID    `json:"customer_id"`
	Items           []OrderItem  `json:"items"`
	Status          Status       `json:"status"`
	PaymentStatus   bool         `json:"payment_status"`
	TotalAmount     float64      `json:"total_amount"`
	ShippingAddress user.Address `json:"shipping_address"`
	Notes           string       `json:"notes,omitempty"`
	CreatedBy       uuid.UUID    `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// PublicOrder is the unauthenticated lookup view: no address, no notes, no
// customer identity.
type PublicOrder struct {
	OrderID     string      `json:"order_id"`
	Status      Status      `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Public returns the restricted view of o.
func (o *Order) Public() *PublicOrder {
	return &PublicOrder{
		OrderID:     o.OrderID,
		Status:      o.Status,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
}

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderID generates a human-facing identifier: ORD-<epoch-millis>-<5
// random base36 chars>. Entropy only avoids collisions; the store's unique
// constraint is the actual uniqueness guarantee.
func NewOrderID() string {
	var b [5]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	suffix := make([]byte, 5)
	for i, c := range b {
		suffix[i] = orderIDAlphabet[int(c)%len(orderIDAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidCustomer  = errors.New("invalid customer")
	ErrDuplicateOrderID = errors.New("order id already exists")
	ErrStatusConflict   = errors.New("order status changed concurrently")
)
