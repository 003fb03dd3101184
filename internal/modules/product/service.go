package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service defines catalog and stock management business logic. Order-driven
// reservations do not pass through here; the order module drives the
// repository's Reserve/Release directly inside its own transaction scope.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, f ListFilter) ([]*Product, int, error)
	Categories(ctx context.Context) ([]string, error)

	// AdjustStock applies a direct add/subtract/set to total stock and
	// records an ADJUSTMENT audit entry attributed to the actor.
	AdjustStock(ctx context.Context, id string, op StockOperation, qty int, actorID uuid.UUID, reason string) (*Product, error)

	ToggleActive(ctx context.Context, id string) (*Product, error)
	Transactions(ctx context.Context, id string) ([]*Transaction, error)
}

type CreateProductRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

type UpdateProductRequest struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return nil, fmt.Errorf("sku, name and category are required")
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("stock must not be negative")
	}
	p := &Product{
		ID:          uuid.New(),
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	p, err := s.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if req.SKU != "" {
		p.SKU = req.SKU
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("price must not be negative")
		}
		p.Price = *req.Price
	}
	if req.Category != "" {
		p.Category = req.Category
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return s.repo.GetByID(ctx, pid)
}

func (s *service) ListProducts(ctx context.Context, f ListFilter) ([]*Product, int, error) {
	return s.repo.List(ctx, f)
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

func (s *service) AdjustStock(ctx context.Context, id string, op StockOperation, qty int, actorID uuid.UUID, reason string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	if !op.Valid() {
		return nil, fmt.Errorf("invalid stock operation %q", op)
	}
	if qty < 0 || (qty == 0 && op != OpSet) {
		return nil, fmt.Errorf("quantity must be positive")
	}

	p, err := s.repo.AdjustStock(ctx, pid, op, qty)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = fmt.Sprintf("manual %s", op)
	}
	err = s.repo.LogTransaction(ctx, &Transaction{
		ID:          uuid.New(),
		ProductID:   pid,
		Type:        TxnAdjustment,
		Quantity:    qty,
		Reason:      reason,
		PerformedBy: &actorID,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ToggleActive(ctx context.Context, id string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	p, err := s.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	if err := s.repo.SetActive(ctx, pid, p.IsActive); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Transactions(ctx context.Context, id string) ([]*Transaction, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	if _, err := s.repo.GetByID(ctx, pid); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, pid)
}
