package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topic addresses a group of subscribers: one customer, the watchers of one
// order, or all staff. Subscription and connection management live with the
// broker's consumers; the core only publishes.
type Topic string

const TopicStaff Topic = "staff"

func CustomerTopic(customerID uuid.UUID) Topic { return Topic("user:" + customerID.String()) }
func OrderTopic(orderID string) Topic          { return Topic("order:" + orderID) }

// Order lifecycle events.
const (
	EventOrderCreated       = "orderCreated"
	EventNewOrder           = "newOrder"
	EventOrderStatusUpdated = "orderStatusUpdated"
	EventOrderStatusChanged = "orderStatusChanged"
)

// OrderCreatedPayload goes to the customer who placed the order.
type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	CustomerID  uuid.UUID `json:"customer_id"`
}

// NewOrderPayload is the staff-facing summary of a freshly placed order.
type NewOrderPayload struct {
	ID          uuid.UUID `json:"id"`
	OrderID     string    `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatusUpdatedPayload goes to the owning customer and order watchers.
type StatusUpdatedPayload struct {
	OrderID    string    `json:"order_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// StatusChangedPayload is the staff-facing variant carrying the actor.
type StatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	UpdatedBy uuid.UUID `json:"updated_by"`
}

// Envelope is the wire shape of every published event.
type Envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Dispatcher fans events out to subscribers. Publish is fire-and-forget:
// implementations log failures and never surface them, because the state
// change that triggered the event has already committed.
type Dispatcher interface {
	Publish(ctx context.Context, topic Topic, event string, payload interface{})
}

// Multi publishes to every sink in order.
type Multi []Dispatcher

func (m Multi) Publish(ctx context.Context, topic Topic, event string, payload interface{}) {
	for _, d := range m {
		d.Publish(ctx, topic, event, payload)
	}
}

// Noop discards everything; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Topic, string, interface{}) {}
