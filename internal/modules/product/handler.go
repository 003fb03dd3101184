package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/orderdesk-backend/internal/modules/auth"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes wires the public catalog endpoints and the staff-only
// management endpoints. authn and staffOnly are supplied by the auth module.
func (h *Handler) RegisterRoutes(router chi.Router, authn, staffOnly func(http.Handler) http.Handler) {
	router.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.listPublic)
		r.Get("/meta/categories", h.categories)
		r.Get("/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(authn, staffOnly)
			r.Get("/admin", h.listAdmin)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Patch("/{id}/stock", h.adjustStock)
			r.Patch("/{id}/toggle-status", h.toggleStatus)
			r.Get("/{id}/transactions", h.transactions)
		})
	})
}

func (h *Handler) listPublic(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	f.ActiveOnly = true
	h.list(w, r, f)
}

func (h *Handler) listAdmin(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, parseFilter(r))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f ListFilter) {
	products, total, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products, "total": total})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrProductNotFound)
		return
	}
	if !p.IsActive {
		writeError(w, http.StatusNotFound, ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product": p})
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSKUExists) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"product": p})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"product": p})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Operation StockOperation `json:"operation"`
		Quantity  int            `json:"quantity"`
		Reason    string         `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	p, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), body.Operation, body.Quantity, id.UserID, body.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "stock updated", "product": p})
}

func (h *Handler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.ToggleActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"is_active": p.IsActive})
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.Transactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txns})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		writeError(w, http.StatusNotFound, err)
	case IsInsufficientStock(err), errors.Is(err, ErrSKUExists):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func parseFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		InStock:  q.Get("inStock") == "true",
		Page:     page,
		Limit:    limit,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
