package product

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item plus its inventory counters. Stock is the total
// number of owned units; ReservedStock is the number of units held against
// active orders. Both only move through the repository's reserve, release,
// and adjust operations.
type Product struct {
	ID            uuid.UUID `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	ReservedStock int       `json:"reserved_stock"`
	Category      string    `json:"category"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available is the quantity purchasable right now. It is always derived,
// never stored, so it cannot drift from Stock - ReservedStock.
func (p *Product) Available() int { return p.Stock - p.ReservedStock }

// MarshalJSON includes the derived available_stock field in API responses.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		AvailableStock int `json:"available_stock"`
	}{alias(p), p.Available()})
}

// TransactionType classifies an inventory movement.
type TransactionType string

const (
	TxnReservation TransactionType = "RESERVATION"
	TxnRelease     TransactionType = "RELEASE"
	TxnAdjustment  TransactionType = "ADJUSTMENT"
)

// Transaction is one append-only audit record of an inventory movement.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	OrderID     *uuid.UUID      `json:"order_id,omitempty"`
	Type        TransactionType `json:"type"`
	Quantity    int             `json:"quantity"`
	Reason      string          `json:"reason,omitempty"`
	PerformedBy *uuid.UUID      `json:"performed_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StockOperation selects how AdjustStock changes the total stock.
type StockOperation string

const (
	OpAdd      StockOperation = "add"
	OpSubtract StockOperation = "subtract"
	OpSet      StockOperation = "set"
)

func (op StockOperation) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpSet:
		return true
	}
	return false
}
