package product_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/memstore"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
)

func newService(t *testing.T) (product.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return product.NewService(store.Products()), store
}

func create(t *testing.T, svc product.Service, sku string, stock int) *product.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), product.CreateProductRequest{
		SKU: sku, Name: "thing " + sku, Price: 4.20, Stock: stock, Category: "things",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newService(t)
	p := create(t, svc, "T-1", 12)
	if !p.IsActive {
		t.Fatalf("new product not active")
	}
	if p.Available() != 12 {
		t.Fatalf("available=%d, want 12", p.Available())
	}

	if _, err := svc.CreateProduct(context.Background(), product.CreateProductRequest{
		SKU: "T-1", Name: "dupe", Price: 1, Category: "things",
	}); !errors.Is(err, product.ErrSKUExists) {
		t.Fatalf("duplicate sku: got %v", err)
	}
	if _, err := svc.CreateProduct(context.Background(), product.CreateProductRequest{
		Name: "no sku", Price: 1, Category: "things",
	}); err == nil {
		t.Fatalf("missing sku accepted")
	}
	if _, err := svc.CreateProduct(context.Background(), product.CreateProductRequest{
		SKU: "T-2", Name: "negative", Price: -1, Category: "things",
	}); err == nil {
		t.Fatalf("negative price accepted")
	}
}

func TestAdjustStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	actor := uuid.New()
	p := create(t, svc, "T-1", 10)

	got, err := svc.AdjustStock(ctx, p.ID.String(), product.OpAdd, 5, actor, "restock")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.Stock != 15 {
		t.Fatalf("stock=%d after add, want 15", got.Stock)
	}

	got, err = svc.AdjustStock(ctx, p.ID.String(), product.OpSubtract, 3, actor, "damage")
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if got.Stock != 12 {
		t.Fatalf("stock=%d after subtract, want 12", got.Stock)
	}

	got, err = svc.AdjustStock(ctx, p.ID.String(), product.OpSet, 20, actor, "stocktake")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if got.Stock != 20 {
		t.Fatalf("stock=%d after set, want 20", got.Stock)
	}

	if _, err := svc.AdjustStock(ctx, p.ID.String(), product.OpSubtract, 100, actor, ""); !product.IsInsufficientStock(err) {
		t.Fatalf("subtract below zero: got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, p.ID.String(), "divide", 2, actor, ""); err == nil {
		t.Fatalf("bogus operation accepted")
	}

	txns, err := store.Products().ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("audit rows=%d, want 3", len(txns))
	}
	for _, txn := range txns {
		if txn.Type != product.TxnAdjustment {
			t.Fatalf("audit type=%s, want ADJUSTMENT", txn.Type)
		}
		if txn.PerformedBy == nil || *txn.PerformedBy != actor {
			t.Fatalf("audit actor wrong: %+v", txn)
		}
	}
}

func TestAdjustStockLeavesReservationsAlone(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	p := create(t, svc, "T-1", 10)

	if err := store.Products().Reserve(ctx, p.ID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	got, err := svc.AdjustStock(ctx, p.ID.String(), product.OpAdd, 5, uuid.New(), "")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.ReservedStock != 4 || got.Available() != 11 {
		t.Fatalf("reserved=%d available=%d", got.ReservedStock, got.Available())
	}
}

func TestToggleActive(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := create(t, svc, "T-1", 1)

	got, err := svc.ToggleActive(ctx, p.ID.String())
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got.IsActive {
		t.Fatalf("still active after toggle")
	}
	got, err = svc.ToggleActive(ctx, p.ID.String())
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !got.IsActive {
		t.Fatalf("still inactive after second toggle")
	}
}

func TestUpdateProductKeepsCounters(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	p := create(t, svc, "T-1", 10)
	if err := store.Products().Reserve(ctx, p.ID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	newPrice := 7.77
	got, err := svc.UpdateProduct(ctx, p.ID.String(), product.UpdateProductRequest{
		Name: "renamed", Price: &newPrice,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "renamed" || got.Price != 7.77 {
		t.Fatalf("update not applied: %+v", got)
	}

	stored, _ := store.Products().GetByID(ctx, p.ID)
	if stored.Stock != 10 || stored.ReservedStock != 2 {
		t.Fatalf("counters moved through update: stock=%d reserved=%d", stored.Stock, stored.ReservedStock)
	}
}

func TestListAndCategories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a := create(t, svc, "A-1", 5)
	if _, err := svc.CreateProduct(ctx, product.CreateProductRequest{
		SKU: "B-1", Name: "gadget", Price: 2, Stock: 0, Category: "gadgets",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ToggleActive(ctx, a.ID.String()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	_, total, err := svc.ListProducts(ctx, product.ListFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Fatalf("active listing=%d, want 1", total)
	}
	_, total, err = svc.ListProducts(ctx, product.ListFilter{ActiveOnly: true, InStock: true})
	if err != nil {
		t.Fatalf("list in stock: %v", err)
	}
	if total != 0 {
		t.Fatalf("in-stock listing=%d, want 0", total)
	}

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 1 || cats[0] != "gadgets" {
		t.Fatalf("categories=%v", cats)
	}
}

func TestTransactionsUnknownProduct(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Transactions(context.Background(), uuid.New().String()); !errors.Is(err, product.ErrProductNotFound) {
		t.Fatalf("got %v, want ErrProductNotFound", err)
	}
}
