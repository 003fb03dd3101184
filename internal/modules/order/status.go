package order

// Status is the lifecycle state of an order. The fulfilment sequence is
// PLACED -> PICKED -> SHIPPED -> DELIVERED; CANCELLED is reachable from any
// status and reversible back to any status. Staff may also move an order
// backwards (e.g. SHIPPED back to PICKED); the only transitions with
// inventory side effects are the ones crossing the CANCELLED boundary.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPicked    Status = "PICKED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusPicked, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ReleasesInventory reports whether moving from to into s releases the
// order's reservations.
func ReleasesInventory(from, to Status) bool {
	return to == StatusCancelled && from != StatusCancelled
}

// ReservesInventory reports whether moving from from into to re-reserves
// the order's items. Reactivation may fail if stock was consumed elsewhere
// in the interim.
func ReservesInventory(from, to Status) bool {
	return from == StatusCancelled && to != StatusCancelled
}
