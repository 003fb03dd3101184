package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/order"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

func newProduct(sku string, stock int) *product.Product {
	return &product.Product{
		ID:       uuid.New(),
		SKU:      sku,
		Name:     "widget " + sku,
		Price:    9.99,
		Stock:    stock,
		Category: "widgets",
		IsActive: true,
	}
}

func TestReserveAndRelease(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := s.Products()

	p := newProduct("W-1", 10)
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := products.Reserve(ctx, p.ID, 7); err != nil {
		t.Fatalf("reserve 7: %v", err)
	}
	got, err := products.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReservedStock != 7 || got.Available() != 3 {
		t.Fatalf("after reserve: reserved=%d available=%d", got.ReservedStock, got.Available())
	}

	err = products.Reserve(ctx, p.ID, 4)
	if !product.IsInsufficientStock(err) {
		t.Fatalf("reserve beyond available: got %v, want insufficient stock", err)
	}

	released, err := products.Release(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released != 7 {
		t.Fatalf("released %d, want clamp to 7", released)
	}
	got, _ = products.GetByID(ctx, p.ID)
	if got.ReservedStock != 0 {
		t.Fatalf("reserved=%d after full release, want 0", got.ReservedStock)
	}
}

func TestReserveInactiveProduct(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := s.Products()

	p := newProduct("W-2", 5)
	p.IsActive = false
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := products.Reserve(ctx, p.ID, 1); !errors.Is(err, product.ErrProductInactive) {
		t.Fatalf("got %v, want ErrProductInactive", err)
	}
}

func TestTransactionRollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := s.Products()

	p1 := newProduct("W-3", 5)
	p2 := newProduct("W-4", 5)
	for _, p := range []*product.Product{p1, p2} {
		if err := products.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	boom := errors.New("boom")
	err := s.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		if err := products.Reserve(ctx, p1.ID, 5); err != nil {
			return err
		}
		if err := products.Reserve(ctx, p2.ID, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	for _, p := range []*product.Product{p1, p2} {
		got, err := products.GetByID(ctx, p.ID)
		if err != nil {
			t.Fatalf("get after rollback: %v", err)
		}
		if got.ReservedStock != 0 {
			t.Fatalf("product %s reserved=%d after rollback, want 0", got.SKU, got.ReservedStock)
		}
	}
}

func TestTransactionCommitKeepsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := s.Products()

	p := newProduct("W-5", 5)
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		return products.Reserve(ctx, p.ID, 2)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	got, _ := products.GetByID(ctx, p.ID)
	if got.ReservedStock != 2 {
		t.Fatalf("reserved=%d after commit, want 2", got.ReservedStock)
	}
}

func TestDuplicateSKUAndEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Products().Create(ctx, newProduct("W-6", 1)); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := s.Products().Create(ctx, newProduct("W-6", 1)); !errors.Is(err, product.ErrSKUExists) {
		t.Fatalf("got %v, want ErrSKUExists", err)
	}

	u := &user.User{ID: uuid.New(), Name: "a", Email: "a@example.com", Role: user.RoleCustomer, IsActive: true}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := &user.User{ID: uuid.New(), Name: "b", Email: "A@Example.com", Role: user.RoleCustomer, IsActive: true}
	if err := s.Users().Create(ctx, dup); !errors.Is(err, user.ErrEmailExists) {
		t.Fatalf("got %v, want ErrEmailExists", err)
	}
}

func TestOrderStatusCompareAndSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	orders := s.Orders()

	o := &order.Order{
		ID:         uuid.New(),
		OrderID:    order.NewOrderID(),
		CustomerID: uuid.New(),
		Status:     order.StatusPlaced,
		Items:      []order.OrderItem{{ProductID: uuid.New(), Quantity: 1, PriceAtTime: 1}},
	}
	if err := orders.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := orders.UpdateStatus(ctx, o.ID, order.StatusCancelled, order.StatusPlaced)
	if !errors.Is(err, order.ErrStatusConflict) {
		t.Fatalf("stale from: got %v, want ErrStatusConflict", err)
	}
	got, _ := orders.GetByID(ctx, o.ID)
	if got.Status != order.StatusPlaced {
		t.Fatalf("status moved on failed compare-and-set: %s", got.Status)
	}

	if err := orders.UpdateStatus(ctx, o.ID, order.StatusPlaced, order.StatusShipped); err != nil {
		t.Fatalf("matching from: %v", err)
	}
	got, _ = orders.GetByID(ctx, o.ID)
	if got.Status != order.StatusShipped {
		t.Fatalf("status=%s, want SHIPPED", got.Status)
	}

	err = orders.UpdateStatus(ctx, uuid.New(), order.StatusPlaced, order.StatusShipped)
	if !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("missing order: got %v, want ErrOrderNotFound", err)
	}
}

func TestRepositoriesReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	products := s.Products()

	p := newProduct("W-7", 5)
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := products.GetByID(ctx, p.ID)
	got.Stock = 999

	again, _ := products.GetByID(ctx, p.ID)
	if again.Stock != 5 {
		t.Fatalf("stored stock mutated through returned copy: %d", again.Stock)
	}
}
