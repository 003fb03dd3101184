package product

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a product listing. ActiveOnly is forced on for the
// public catalog; staff listings see everything.
type ListFilter struct {
	Category   string
	Search     string
	InStock    bool
	ActiveOnly bool
	Page       int
	Limit      int
}

// Repository defines product and inventory storage. Reserve, Release and
// AdjustStock are atomic per product with respect to concurrent callers;
// inside a storage.TxManager scope they additionally commit or roll back
// with the rest of the unit.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, f ListFilter) ([]*Product, int, error)
	Categories(ctx context.Context) ([]string, error)

	// Reserve places a hold of qty units. It fails with ErrProductNotFound,
	// ErrProductInactive, or *InsufficientStockError; on success the product
	// invariant 0 <= reserved <= stock still holds.
	Reserve(ctx context.Context, id uuid.UUID, qty int) error

	// Release removes up to qty units of hold, clamped at zero, and returns
	// how many units were actually released. Releasing more than is held is
	// tolerated; callers log the anomaly.
	Release(ctx context.Context, id uuid.UUID, qty int) (int, error)

	// AdjustStock changes total stock and never touches the reserved count.
	AdjustStock(ctx context.Context, id uuid.UUID, op StockOperation, qty int) (*Product, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// LogTransaction appends one audit record. Records are never updated.
	LogTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, productID uuid.UUID) ([]*Transaction, error)
}
