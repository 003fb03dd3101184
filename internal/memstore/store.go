// Package memstore provides a map-backed implementation of the user,
// product, and order repositories plus a matching transaction manager. It
// backs tests and single-process deployments where postgres is unavailable.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/order"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
	"github.com/orderdesk/orderdesk-backend/internal/storage"
)

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// Store holds all state behind one RWMutex. Individual repository calls
// take the lock themselves; calls made inside WithTransaction run under the
// transaction's lock and must not re-acquire it, which the context marker
// signals.
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]*user.User
	usersByEmail map[string]uuid.UUID

	products      map[uuid.UUID]*product.Product
	productsBySKU map[string]uuid.UUID
	transactions  []*product.Transaction

	orders          map[uuid.UUID]*order.Order
	ordersByOrderID map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		users:           make(map[uuid.UUID]*user.User),
		usersByEmail:    make(map[string]uuid.UUID),
		products:        make(map[uuid.UUID]*product.Product),
		productsBySKU:   make(map[string]uuid.UUID),
		orders:          make(map[uuid.UUID]*order.Order),
		ordersByOrderID: make(map[string]uuid.UUID),
	}
}

func (s *Store) Users() user.Repository       { return &userRepo{s: s} }
func (s *Store) Products() product.Repository { return &productRepo{s: s} }
func (s *Store) Orders() order.Repository     { return &orderRepo{s: s} }

// Tx returns the store's transaction manager.
func (s *Store) Tx() storage.TxManager { return (*txManager)(s) }

type txManager Store

// WithTransaction serializes the whole unit under the write lock and keeps
// a snapshot of every map; if fn fails the snapshot is restored, so partial
// writes never become visible.
func (t *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s := (*Store)(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	users           map[uuid.UUID]*user.User
	usersByEmail    map[string]uuid.UUID
	products        map[uuid.UUID]*product.Product
	productsBySKU   map[string]uuid.UUID
	transactions    []*product.Transaction
	orders          map[uuid.UUID]*order.Order
	ordersByOrderID map[string]uuid.UUID
}

func (s *Store) snapshot() *snapshotState {
	snap := &snapshotState{
		users:           make(map[uuid.UUID]*user.User, len(s.users)),
		usersByEmail:    make(map[string]uuid.UUID, len(s.usersByEmail)),
		products:        make(map[uuid.UUID]*product.Product, len(s.products)),
		productsBySKU:   make(map[string]uuid.UUID, len(s.productsBySKU)),
		transactions:    make([]*product.Transaction, len(s.transactions)),
		orders:          make(map[uuid.UUID]*order.Order, len(s.orders)),
		ordersByOrderID: make(map[string]uuid.UUID, len(s.ordersByOrderID)),
	}
	for id, u := range s.users {
		snap.users[id] = copyUser(u)
	}
	for email, id := range s.usersByEmail {
		snap.usersByEmail[email] = id
	}
	for id, p := range s.products {
		snap.products[id] = copyProduct(p)
	}
	for sku, id := range s.productsBySKU {
		snap.productsBySKU[sku] = id
	}
	copy(snap.transactions, s.transactions)
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for oid, id := range s.ordersByOrderID {
		snap.ordersByOrderID[oid] = id
	}
	return snap
}

func (s *Store) restore(snap *snapshotState) {
	s.users = snap.users
	s.usersByEmail = snap.usersByEmail
	s.products = snap.products
	s.productsBySKU = snap.productsBySKU
	s.transactions = snap.transactions
	s.orders = snap.orders
	s.ordersByOrderID = snap.ordersByOrderID
}

func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func copyProduct(p *product.Product) *product.Product {
	c := *p
	return &c
}

func copyTransaction(t *product.Transaction) *product.Transaction {
	c := *t
	return &c
}

func copyOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = make([]order.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

func paginate(page, limit, total int) (start, end int) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	return start, end
}
