package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/order"
)

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	if _, exists := r.s.ordersByOrderID[o.OrderID]; exists {
		return order.ErrDuplicateOrderID
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.s.orders[o.ID] = copyOrder(o)
	r.s.ordersByOrderID[o.OrderID] = o.ID
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) GetByOrderID(ctx context.Context, orderID string) (*order.Order, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	id, ok := r.s.ordersByOrderID[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return copyOrder(r.s.orders[id]), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return fmt.Errorf("%w: expected %s, found %s", order.ErrStatusConflict, from, o.Status)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *orderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, paid bool) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.PaymentStatus = paid
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *orderRepo) List(ctx context.Context, f order.ListFilter) ([]*order.Order, int, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	var matched []*order.Order
	for _, o := range r.s.orders {
		if f.CustomerID != uuid.Nil && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.CreatedAt.After(f.To) {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start, end := paginate(f.Page, f.Limit, total)
	return matched[start:end], total, nil
}

func (r *orderRepo) Stats(ctx context.Context) (*order.Stats, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	byStatus := make(map[order.Status]*order.StatusCount)
	st := &order.Stats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, o := range r.s.orders {
		sc, ok := byStatus[o.Status]
		if !ok {
			sc = &order.StatusCount{Status: o.Status}
			byStatus[o.Status] = sc
		}
		sc.Count++
		sc.TotalAmount += o.TotalAmount
		st.TotalOrders++
		if !o.CreatedAt.Before(today) {
			st.TodayOrders++
		}
	}
	for _, sc := range byStatus {
		st.ByStatus = append(st.ByStatus, *sc)
	}
	sort.Slice(st.ByStatus, func(i, j int) bool {
		return st.ByStatus[i].Status < st.ByStatus[j].Status
	})
	return st, nil
}
