package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows an order listing. A zero CustomerID means all
// customers; the service forces it for non-staff callers.
type ListFilter struct {
	CustomerID    uuid.UUID
	Status        Status
	PaymentStatus *bool
	From, To      time.Time
	Page          int
	Limit         int
}

// StatusCount is one row of the staff stats: orders and revenue per status.
type StatusCount struct {
	Status      Status  `json:"status"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type Stats struct {
	ByStatus    []StatusCount `json:"by_status"`
	TotalOrders int           `json:"total_orders"`
	TodayOrders int           `json:"today_orders"`
}

// Repository is the order ledger. Create enforces OrderID uniqueness and
// reports collisions as ErrDuplicateOrderID so the coordinator can retry
// with a fresh identifier.
//
// UpdateStatus is a compare-and-set: the write only lands if the order is
// still in from, otherwise it fails with ErrStatusConflict. The status
// transition's inventory side effects are computed from the observed old
// status, so a stale observation must abort the whole transaction instead
// of double-applying them.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	UpdatePayment(ctx context.Context, id uuid.UUID, paid bool) error
	List(ctx context.Context, f ListFilter) ([]*Order, int, error)
	Stats(ctx context.Context) (*Stats, error)
}
