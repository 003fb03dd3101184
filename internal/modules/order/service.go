package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/notify"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
	"github.com/orderdesk/orderdesk-backend/internal/storage"
)

// Service is the order engine: placement (multi-item stock check,
// reservation, price snapshot and ledger insert as one atomic unit), the
// status state machine with its cancel/reactivate inventory side effects,
// and the query surface.
type Service interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, req PlaceOrderRequest) (*Order, error)
	PlaceOrderForCustomer(ctx context.Context, actorID uuid.UUID, req StaffOrderRequest) (*Order, error)

	GetOrder(ctx context.Context, id string, requesterID uuid.UUID, requesterRole user.Role) (*Order, error)
	LookupOrder(ctx context.Context, orderID string) (*PublicOrder, error)
	ListOrders(ctx context.Context, f ListFilter, requesterID uuid.UUID, requesterRole user.Role) ([]*Order, int, error)
	Stats(ctx context.Context) (*Stats, error)

	UpdateStatus(ctx context.Context, id string, newStatus Status, actorID uuid.UUID) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, paid bool) (*Order, error)
}

// CartItem is one requested line of a new order.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest is the self-service placement payload. A missing
// shipping address falls back to the customer's account address.
type PlaceOrderRequest struct {
	Items           []CartItem    `json:"items"`
	ShippingAddress *user.Address `json:"shipping_address"`
	Notes           string        `json:"notes"`
}

// StaffOrderRequest places an order on behalf of an existing customer and
// may set the payment flag at creation.
type StaffOrderRequest struct {
	CustomerID      string        `json:"customer_id"`
	Items           []CartItem    `json:"items"`
	ShippingAddress *user.Address `json:"shipping_address"`
	Notes           string        `json:"notes"`
	PaymentStatus   bool          `json:"payment_status"`
}

type service struct {
	orders     Repository
	products   product.Repository
	users      user.Repository
	tx         storage.TxManager
	dispatcher notify.Dispatcher
	log        *slog.Logger
}

func NewService(orders Repository, products product.Repository, users user.Repository,
	tx storage.TxManager, dispatcher notify.Dispatcher, log *slog.Logger) Service {
	return &service{
		orders:     orders,
		products:   products,
		users:      users,
		tx:         tx,
		dispatcher: dispatcher,
		log:        log,
	}
}

// orderIDRetries bounds the regeneration loop when the store rejects a
// generated public identifier as a duplicate.
const orderIDRetries = 3

func (s *service) PlaceOrder(ctx context.Context, customerID uuid.UUID, req PlaceOrderRequest) (*Order, error) {
	return s.place(ctx, customerID, customerID, req.Items, req.ShippingAddress, req.Notes, false)
}

func (s *service) PlaceOrderForCustomer(ctx context.Context, actorID uuid.UUID, req StaffOrderRequest) (*Order, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomer
	}
	return s.place(ctx, customerID, actorID, req.Items, req.ShippingAddress, req.Notes, req.PaymentStatus)
}

// place runs the full placement protocol. Validation, reservation and the
// ledger insert share one transaction; if any reservation fails after
// earlier ones were applied, the rollback removes them all and no order is
// created.
func (s *service) place(ctx context.Context, customerID, createdBy uuid.UUID,
	items []CartItem, addr *user.Address, notes string, paid bool) (*Order, error) {

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	parsed := make([]OrderItem, len(items))
	for i, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item %d: invalid product id %q", i, it.ProductID)
		}
		parsed[i] = OrderItem{ProductID: pid, Quantity: it.Quantity}
	}

	customer, err := s.users.GetByID(ctx, customerID.String())
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCustomer
		}
		return nil, err
	}
	if createdBy != customerID && customer.Role != user.RoleCustomer {
		return nil, ErrInvalidCustomer
	}

	shipping := customer.Address
	if addr != nil {
		shipping = *addr
	}

	var created *Order
	for attempt := 0; attempt < orderIDRetries; attempt++ {
		o := &Order{
			ID:              uuid.New(),
			OrderID:         NewOrderID(),
			CustomerID:      customerID,
			Status:          StatusPlaced,
			PaymentStatus:   paid,
			ShippingAddress: shipping,
			Notes:           notes,
			CreatedBy:       createdBy,
		}

		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			// Phase 1: validate every line and snapshot prices before
			// touching any reservation.
			var total float64
			lines := make([]OrderItem, len(parsed))
			for i, it := range parsed {
				p, err := s.products.GetByID(ctx, it.ProductID)
				if err != nil {
					if errors.Is(err, product.ErrProductNotFound) {
						return fmt.Errorf("product %s: %w", it.ProductID, product.ErrProductNotFound)
					}
					return err
				}
				if !p.IsActive {
					return fmt.Errorf("product %s: %w", it.ProductID, product.ErrProductInactive)
				}
				if p.Available() < it.Quantity {
					return &product.InsufficientStockError{
						ProductID: p.ID.String(),
						Name:      p.Name,
						Requested: it.Quantity,
						Available: p.Available(),
					}
				}
				lines[i] = OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, PriceAtTime: p.Price}
				total += p.Price * float64(it.Quantity)
			}

			// Phase 2: reserve each line. A concurrent order may have
			// consumed stock since phase 1; a failure here aborts the whole
			// transaction, undoing the reservations already applied.
			for _, line := range lines {
				if err := s.products.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
					return err
				}
				if err := s.products.LogTransaction(ctx, &product.Transaction{
					ID:          uuid.New(),
					ProductID:   line.ProductID,
					OrderID:     &o.ID,
					Type:        product.TxnReservation,
					Quantity:    line.Quantity,
					PerformedBy: &createdBy,
				}); err != nil {
					return err
				}
			}

			o.Items = lines
			o.TotalAmount = round2(total)
			return s.orders.Create(ctx, o)
		})
		if errors.Is(err, ErrDuplicateOrderID) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = o
		break
	}
	if created == nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	// Events fire only after the transaction has committed.
	createdPayload := notify.OrderCreatedPayload{
		OrderID:     created.OrderID,
		Status:      string(created.Status),
		TotalAmount: created.TotalAmount,
		CustomerID:  created.CustomerID,
	}
	s.dispatcher.Publish(ctx, notify.CustomerTopic(created.CustomerID), notify.EventOrderCreated, createdPayload)
	s.dispatcher.Publish(ctx, notify.OrderTopic(created.OrderID), notify.EventOrderCreated, createdPayload)
	s.dispatcher.Publish(ctx, notify.TopicStaff, notify.EventNewOrder,
		notify.NewOrderPayload{
			ID:          created.ID,
			OrderID:     created.OrderID,
			CustomerID:  created.CustomerID,
			TotalAmount: created.TotalAmount,
			Status:      string(created.Status),
			CreatedAt:   created.CreatedAt,
		})
	return created, nil
}

func (s *service) GetOrder(ctx context.Context, id string, requesterID uuid.UUID, requesterRole user.Role) (*Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	// Customers may only fetch their own orders; hide existence otherwise.
	if !requesterRole.IsStaff() && o.CustomerID != requesterID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) LookupOrder(ctx context.Context, orderID string) (*PublicOrder, error) {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Public(), nil
}

func (s *service) ListOrders(ctx context.Context, f ListFilter, requesterID uuid.UUID, requesterRole user.Role) ([]*Order, int, error) {
	if !requesterRole.IsStaff() {
		f.CustomerID = requesterID
	}
	return s.orders.List(ctx, f)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.orders.Stats(ctx)
}

func (s *service) UpdateStatus(ctx context.Context, id string, newStatus Status, actorID uuid.UUID) (*Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var updated *Order
	var oldStatus Status
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, oid)
		if err != nil {
			return err
		}
		oldStatus = o.Status

		switch {
		case ReleasesInventory(oldStatus, newStatus):
			// Give the reserved units back, one release per line item.
			for _, it := range o.Items {
				released, err := s.products.Release(ctx, it.ProductID, it.Quantity)
				if err != nil {
					return err
				}
				if released < it.Quantity {
					s.log.Warn("released less than reserved",
						"order_id", o.OrderID, "product_id", it.ProductID,
						"expected", it.Quantity, "released", released)
				}
				if err := s.products.LogTransaction(ctx, &product.Transaction{
					ID:          uuid.New(),
					ProductID:   it.ProductID,
					OrderID:     &o.ID,
					Type:        product.TxnRelease,
					Quantity:    it.Quantity,
					Reason:      "order cancelled",
					PerformedBy: &actorID,
				}); err != nil {
					return err
				}
			}
		case ReservesInventory(oldStatus, newStatus):
			// Reactivation: stock may have been sold in the interim, in
			// which case the transaction aborts and the order stays
			// CANCELLED.
			for _, it := range o.Items {
				if err := s.products.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
				if err := s.products.LogTransaction(ctx, &product.Transaction{
					ID:          uuid.New(),
					ProductID:   it.ProductID,
					OrderID:     &o.ID,
					Type:        product.TxnReservation,
					Quantity:    it.Quantity,
					Reason:      "order reactivated",
					PerformedBy: &actorID,
				}); err != nil {
					return err
				}
			}
		}

		// Compare-and-set against the status observed above. A concurrent
		// transition invalidates the inventory side effects computed from
		// it, so the whole unit aborts rather than double-applying them.
		if err := s.orders.UpdateStatus(ctx, oid, oldStatus, newStatus); err != nil {
			return err
		}
		o.Status = newStatus
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Publish(ctx, notify.CustomerTopic(updated.CustomerID), notify.EventOrderStatusUpdated,
		notify.StatusUpdatedPayload{
			OrderID:    updated.OrderID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(newStatus),
			CustomerID: updated.CustomerID,
		})
	s.dispatcher.Publish(ctx, notify.OrderTopic(updated.OrderID), notify.EventOrderStatusUpdated,
		notify.StatusUpdatedPayload{
			OrderID:    updated.OrderID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(newStatus),
			CustomerID: updated.CustomerID,
		})
	s.dispatcher.Publish(ctx, notify.TopicStaff, notify.EventOrderStatusChanged,
		notify.StatusChangedPayload{
			OrderID:   updated.OrderID,
			OldStatus: string(oldStatus),
			NewStatus: string(newStatus),
			UpdatedBy: actorID,
		})
	return updated, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id string, paid bool) (*Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdatePayment(ctx, oid, paid); err != nil {
		return nil, err
	}
	o.PaymentStatus = paid
	return o, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
