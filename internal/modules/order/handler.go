package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orderdesk/orderdesk-backend/internal/modules/auth"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
	"github.com/orderdesk/orderdesk-backend/internal/redisx"
)

// Handler exposes the order API. The redis client is optional; when nil the
// public lookup skips the cache and always hits the store.
type Handler struct {
	service Service
	cache   *redis.Client
}

func NewHandler(service Service, cache *redis.Client) *Handler {
	return &Handler{service: service, cache: cache}
}

func (h *Handler) RegisterRoutes(router chi.Router, authn, staffOnly func(http.Handler) http.Handler) {
	router.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/lookup/{orderId}", h.lookup)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.placeOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn, staffOnly)
			r.Post("/create-for-customer", h.placeForCustomer)
			r.Patch("/{id}/status", h.updateStatus)
			r.Patch("/{id}/payment", h.updatePayment)
			r.Get("/stats/summary", h.stats)
		})
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.PlaceOrder(r.Context(), identity.UserID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": o})
}

func (h *Handler) placeForCustomer(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	var req StaffOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.PlaceOrderForCustomer(r.Context(), identity.UserID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": o})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	f := parseListFilter(r)
	orders, total, err := h.service.ListOrders(r.Context(), f, identity.UserID, identity.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "total": total})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"), identity.UserID, identity.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": o})
}

// lookup serves the unauthenticated tracking view, cached briefly in redis.
// Cache errors are ignored; the store is the source of truth.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	key := fmt.Sprintf(redisx.KeyPublicOrder, orderID)

	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), key).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	view, err := h.service.LookupOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	body := map[string]interface{}{"order": view}
	if h.cache != nil {
		if raw, err := json.Marshal(body); err == nil {
			h.cache.Set(r.Context(), key, raw, redisx.TTLPublicOrder)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	var body struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status, identity.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidateLookup(r, o.OrderID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": o})
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentStatus bool `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.service.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), body.PaymentStatus)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": o})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": st})
}

func (h *Handler) invalidateLookup(r *http.Request, orderID string) {
	if h.cache == nil {
		return
	}
	h.cache.Del(r.Context(), fmt.Sprintf(redisx.KeyPublicOrder, orderID))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, product.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err)
	case product.IsInsufficientStock(err), errors.Is(err, ErrStatusConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, ErrEmptyOrder), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidCustomer),
		errors.Is(err, product.ErrProductInactive):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	f := ListFilter{
		Status: Status(q.Get("status")),
		Page:   page,
		Limit:  limit,
	}
	if v := q.Get("customerId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.CustomerID = id
		}
	}
	if v := q.Get("paid"); v != "" {
		paid := v == "true"
		f.PaymentStatus = &paid
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
