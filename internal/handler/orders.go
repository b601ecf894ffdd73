package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/middleware"
	"github.com/kopikita-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (docstore.Document, error)
	TransitionStatus(ctx context.Context, orderID, status string) error
	Get(ctx context.Context, orderID string) (docstore.Document, error)
	List(ctx context.Context, statusFilter string) []docstore.Document
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request types ---

type createOrderRequest struct {
	Customer string                   `json:"customer"`
	Station  string                   `json:"station"`
	Discount float64                  `json:"discount"`
	Items    []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	Name      string   `json:"name"`
	Quantity  *int     `json:"quantity"`
	UnitPrice *float64 `json:"unitPrice"`
	Price     *float64 `json:"price"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemInput{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Price:     item.Price,
		}
	}

	doc, err := h.svc.Create(r.Context(), service.CreateOrderRequest{
		Customer: req.Customer,
		Station:  req.Station,
		Discount: req.Discount,
		Items:    items,
	})
	if err != nil {
		middleware.RecordOrderOperation("create", false)
		log.Printf("ERROR: create order: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	middleware.RecordOrderOperation("create", true)
	writeSuccess(w, http.StatusCreated, docJSON(doc))
}

// List handles GET /api/orders. The optional status parameter holds a
// comma-separated "any of" filter. This path never reports an error: a store
// failure degrades to an empty list inside the service.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.List(r.Context(), r.URL.Query().Get("status"))
	writeSuccess(w, http.StatusOK, docsJSON(docs))
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, docJSON(doc))
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, service.ErrMissingStatus.Error())
		return
	}

	if err := h.svc.TransitionStatus(r.Context(), orderID, req.Status); err != nil {
		middleware.RecordOrderOperation("status_update", false)
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	middleware.RecordOrderOperation("status_update", true)
	writeSuccess(w, http.StatusOK, map[string]string{
		"id":     orderID,
		"status": req.Status,
	})
}
