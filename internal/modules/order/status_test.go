package order

import (
	"strings"
	"testing"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPlaced, StatusPicked, StatusShipped, StatusDelivered, StatusCancelled} {
		if !s.Valid() {
			t.Fatalf("%s reported invalid", s)
		}
	}
	for _, s := range []Status{"", "placed", "UNKNOWN"} {
		if s.Valid() {
			t.Fatalf("%q reported valid", s)
		}
	}
}

func TestInventoryBoundaryTransitions(t *testing.T) {
	cases := []struct {
		from, to           Status
		releases, reserves bool
	}{
		{StatusPlaced, StatusCancelled, true, false},
		{StatusShipped, StatusCancelled, true, false},
		{StatusCancelled, StatusPlaced, false, true},
		{StatusCancelled, StatusDelivered, false, true},
		{StatusCancelled, StatusCancelled, false, false},
		{StatusPlaced, StatusPicked, false, false},
		{StatusShipped, StatusPicked, false, false},
		{StatusPlaced, StatusPlaced, false, false},
	}
	for _, c := range cases {
		if got := ReleasesInventory(c.from, c.to); got != c.releases {
			t.Errorf("ReleasesInventory(%s, %s) = %v, want %v", c.from, c.to, got, c.releases)
		}
		if got := ReservesInventory(c.from, c.to); got != c.reserves {
			t.Errorf("ReservesInventory(%s, %s) = %v, want %v", c.from, c.to, got, c.reserves)
		}
	}
}

func TestNewOrderID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		if !strings.HasPrefix(id, "ORD-") {
			t.Fatalf("bad prefix: %s", id)
		}
		parts := strings.Split(id, "-")
		if len(parts) != 3 || len(parts[2]) != 5 {
			t.Fatalf("bad shape: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id in 100 draws: %s", id)
		}
		seen[id] = true
	}
}
