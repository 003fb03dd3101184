package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	if _, exists := r.s.productsBySKU[p.SKU]; exists {
		return product.ErrSKUExists
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.products[p.ID] = copyProduct(p)
	r.s.productsBySKU[p.SKU] = p.ID
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	prev, ok := r.s.products[p.ID]
	if !ok {
		return product.ErrProductNotFound
	}
	if p.SKU != prev.SKU {
		if _, exists := r.s.productsBySKU[p.SKU]; exists {
			return product.ErrSKUExists
		}
		delete(r.s.productsBySKU, prev.SKU)
		r.s.productsBySKU[p.SKU] = p.ID
	}
	// Inventory counters only move through Reserve, Release and AdjustStock.
	p.Stock = prev.Stock
	p.ReservedStock = prev.ReservedStock
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (r *productRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	id, ok := r.s.productsBySKU[sku]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return copyProduct(r.s.products[id]), nil
}

func (r *productRepo) List(ctx context.Context, f product.ListFilter) ([]*product.Product, int, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	var matched []*product.Product
	search := strings.ToLower(f.Search)
	for _, p := range r.s.products {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.InStock && p.Available() <= 0 {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		matched = append(matched, copyProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	start, end := paginate(f.Page, f.Limit, total)
	return matched[start:end], total, nil
}

func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	seen := make(map[string]bool)
	for _, p := range r.s.products {
		if p.IsActive && p.Category != "" {
			seen[p.Category] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

func (r *productRepo) Reserve(ctx context.Context, id uuid.UUID, qty int) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	p, ok := r.s.products[id]
	if !ok {
		return product.ErrProductNotFound
	}
	if !p.IsActive {
		return product.ErrProductInactive
	}
	if p.Available() < qty {
		return &product.InsufficientStockError{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Requested: qty,
			Available: p.Available(),
		}
	}
	p.ReservedStock += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *productRepo) Release(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	unlock := r.s.lock(ctx)
	defer unlock()

	p, ok := r.s.products[id]
	if !ok {
		return 0, product.ErrProductNotFound
	}
	released := qty
	if released > p.ReservedStock {
		released = p.ReservedStock
	}
	p.ReservedStock -= released
	p.UpdatedAt = time.Now().UTC()
	return released, nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, op product.StockOperation, qty int) (*product.Product, error) {
	unlock := r.s.lock(ctx)
	defer unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	switch op {
	case product.OpAdd:
		p.Stock += qty
	case product.OpSubtract:
		if p.Stock < qty {
			return nil, &product.InsufficientStockError{
				ProductID: p.ID.String(),
				Name:      p.Name,
				Requested: qty,
				Available: p.Stock,
			}
		}
		p.Stock -= qty
	case product.OpSet:
		p.Stock = qty
	default:
		return nil, fmt.Errorf("invalid stock operation %q", op)
	}
	p.UpdatedAt = time.Now().UTC()
	return copyProduct(p), nil
}

func (r *productRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	p, ok := r.s.products[id]
	if !ok {
		return product.ErrProductNotFound
	}
	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *productRepo) LogTransaction(ctx context.Context, t *product.Transaction) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.s.transactions = append(r.s.transactions, copyTransaction(t))
	return nil
}

func (r *productRepo) ListTransactions(ctx context.Context, productID uuid.UUID) ([]*product.Transaction, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	var out []*product.Transaction
	for _, t := range r.s.transactions {
		if t.ProductID == productID {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
