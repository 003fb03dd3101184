package order_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/auth"
	"github.com/orderdesk/orderdesk-backend/internal/modules/order"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

// headerIdentity reads the test caller from request headers so one router
// can serve requests from different principals.
func headerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Test-User")
		if raw == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		uid, err := uuid.Parse(raw)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := auth.Identity{UserID: uid, Role: user.Role(r.Header.Get("X-Test-Role"))}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func staffGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || !id.Role.IsStaff() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newServer(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t)
	router := chi.NewRouter()
	order.NewHandler(f.service, nil).RegisterRoutes(router, headerIdentity, staffGate)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return f, srv
}

func doJSON(t *testing.T, method, url string, as *user.User, role user.Role, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if as != nil {
		req.Header.Set("X-Test-User", as.ID.String())
		req.Header.Set("X-Test-Role", string(role))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeOrder(t *testing.T, resp *http.Response) *order.Order {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Order *order.Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Order
}

func TestPlaceOrderEndpoint(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 5)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 2}}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d, want 201", resp.StatusCode)
	}
	o := decodeOrder(t, resp)
	if o.TotalAmount != 20.00 || o.Status != order.StatusPlaced {
		t.Fatalf("order wrong: %+v", o)
	}

	// Unauthenticated placement is refused.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", nil, "",
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 1}}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anon placement status=%d, want 401", resp.StatusCode)
	}
}

func TestPlaceOrderEndpointInsufficientStock(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 1)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 2}}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status=%d, want 409", resp.StatusCode)
	}
}

func TestGetOrderEndpointOwnership(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 5)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 1}}})
	o := decodeOrder(t, resp)

	stranger := &user.User{ID: uuid.New()}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/"+o.ID.String(), stranger, user.RoleCustomer, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger status=%d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/"+o.ID.String(), f.customer, user.RoleCustomer, nil)
	got := decodeOrder(t, resp)
	if got.ID != o.ID {
		t.Fatalf("owner read wrong order: %+v", got)
	}
}

func TestLookupEndpointIsPublicAndRestricted(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 5)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 1}},
			Notes: "ring twice"})
	o := decodeOrder(t, resp)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/lookup/"+o.OrderID, nil, "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status=%d, want 200", resp.StatusCode)
	}
	var body struct {
		Order map[string]interface{} `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, hidden := range []string{"customer_id", "shipping_address", "notes", "payment_status"} {
		if _, present := body.Order[hidden]; present {
			t.Fatalf("public view leaks %q", hidden)
		}
	}
	if body.Order["order_id"] != o.OrderID {
		t.Fatalf("lookup returned %v", body.Order["order_id"])
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/lookup/ORD-0-ZZZZZ", nil, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown lookup status=%d, want 404", resp.StatusCode)
	}
}

func TestStatusEndpointRequiresStaff(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 5)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 1}}})
	o := decodeOrder(t, resp)
	url := fmt.Sprintf("%s/api/v1/orders/%s/status", srv.URL, o.ID)

	resp = doJSON(t, http.MethodPatch, url, f.customer, user.RoleCustomer,
		map[string]string{"status": "SHIPPED"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer patch status=%d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, url, f.staff, user.RoleStaff,
		map[string]string{"status": "SHIPPED"})
	got := decodeOrder(t, resp)
	if got.Status != order.StatusShipped {
		t.Fatalf("status=%s, want SHIPPED", got.Status)
	}

	resp = doJSON(t, http.MethodPatch, url, f.staff, user.RoleStaff,
		map[string]string{"status": "LOST"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus status=%d, want 400", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f, srv := newServer(t)
	p := f.addProduct(t, "A", 10.00, 5)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", f.customer, user.RoleCustomer,
		order.PlaceOrderRequest{Items: []order.CartItem{{ProductID: p.ID.String(), Quantity: 1}}})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/stats/summary", f.staff, user.RoleStaff, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status=%d, want 200", resp.StatusCode)
	}
	var body struct {
		Stats *order.Stats `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Stats.TotalOrders != 1 {
		t.Fatalf("total=%d, want 1", body.Stats.TotalOrders)
	}
}
