package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/events"
	"github.com/kopikita-pos/api/internal/model"
)

// Errors returned by the order service.
var (
	ErrMissingOrderID = errors.New("order id is required")
	ErrMissingStatus  = errors.New("status is required")
)

// CreateOrderRequest is the input for creating an order. Financial fields are
// never trusted from the caller; subtotal and total are always recomputed.
type CreateOrderRequest struct {
	Customer string
	Station  string
	Discount float64
	Items    []OrderItemInput
}

// OrderItemInput is a single requested line item. Quantity and prices are
// pointers so absent fields can be defaulted (quantity 1, unitPrice falling
// back to price then 0).
type OrderItemInput struct {
	Name      string
	Quantity  *int
	UnitPrice *float64
	Price     *float64
}

// OrderService drives the order lifecycle: creation with sequential numbering
// and pricing, status transitions, and filtered listing.
type OrderService struct {
	store  docstore.Store
	events events.Publisher
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(store docstore.Store, events events.Publisher) *OrderService {
	return &OrderService{store: store, events: events}
}

// Create prices the requested items, assigns the next order number, and
// persists the order in pending state. The stored document is returned with
// its assigned id. Store failures surface to the caller; there is no retry.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (docstore.Document, error) {
	items := normalizeItems(req.Items)
	pricing := PriceOrder(items, req.Discount)

	number, err := s.store.NextSeq(ctx, enum.CollectionOrders)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("assign order number: %w", err)
	}

	customer := req.Customer
	if customer == "" {
		customer = "Unknown"
	}
	station := req.Station
	if station == "" {
		station = enum.StationFrontCounter
	}

	itemDocs := make([]any, len(items))
	for i, item := range items {
		itemDocs[i] = map[string]any{
			"name":      item.Name,
			"quantity":  item.Quantity,
			"unitPrice": item.UnitPrice,
		}
	}

	orders := s.store.Collection(enum.CollectionOrders)
	id, err := orders.Add(ctx, map[string]any{
		"orderNumber": number,
		"customer":    customer,
		"items":       itemDocs,
		"subtotal":    pricing.Subtotal,
		"discount":    req.Discount,
		"total":       pricing.Total,
		"totalAmount": pricing.Total, // legacy alias kept for stored-data compatibility
		"status":      enum.OrderStatusPending,
		"station":     station,
		"createdAt":   docstore.ServerTimestamp,
		"updatedAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return docstore.Document{}, fmt.Errorf("create order: %w", err)
	}

	doc, err := orders.Get(ctx, id)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("read back order %s: %w", id, err)
	}

	if s.events != nil {
		s.events.Publish(events.OrderCreated, docJSON(doc))
	}
	return doc, nil
}

// TransitionStatus writes the new status verbatim without loading the order
// first. Only a transition to completed stamps completedAt. The canonical
// lifecycle is pending → preparing → ready → completed, but adjacency is not
// enforced and any status string is accepted.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID, status string) error {
	if orderID == "" {
		return ErrMissingOrderID
	}
	if status == "" {
		return ErrMissingStatus
	}

	patch := map[string]any{
		"status":    status,
		"updatedAt": docstore.ServerTimestamp,
	}
	if status == enum.OrderStatusCompleted {
		patch["completedAt"] = docstore.ServerTimestamp
	}

	if err := s.store.Collection(enum.CollectionOrders).Set(ctx, orderID, patch, true); err != nil {
		// Pass the adapter's verdict through unchanged, including ErrNotFound.
		return err
	}

	if s.events != nil {
		s.events.Publish(events.OrderStatusUpdated, map[string]any{
			"id":     orderID,
			"status": status,
		})
	}
	return nil
}

// Get returns a single order document; a missing id passes through as the
// adapter's ErrNotFound.
func (s *OrderService) Get(ctx context.Context, orderID string) (docstore.Document, error) {
	if orderID == "" {
		return docstore.Document{}, ErrMissingOrderID
	}
	return s.store.Collection(enum.CollectionOrders).Get(ctx, orderID)
}

// List returns orders matching any of the comma-separated statuses, or every
// order when the filter is empty. A store failure degrades to an empty result
// so read availability wins over completeness.
func (s *OrderService) List(ctx context.Context, statusFilter string) []docstore.Document {
	orders := s.store.Collection(enum.CollectionOrders)

	var (
		docs []docstore.Document
		err  error
	)
	if statuses := splitStatuses(statusFilter); len(statuses) > 0 {
		docs, err = orders.Where("status", docstore.OpIn, statuses).GetAll(ctx)
	} else {
		docs, err = orders.GetAll(ctx)
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		return []docstore.Document{}
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs
}

// normalizeItems applies the line-item defaulting rules.
func normalizeItems(inputs []OrderItemInput) []model.LineItem {
	items := make([]model.LineItem, len(inputs))
	for i, in := range inputs {
		item := model.LineItem{Name: in.Name, Quantity: 1}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		switch {
		case in.UnitPrice != nil:
			item.UnitPrice = *in.UnitPrice
		case in.Price != nil:
			item.UnitPrice = *in.Price
		}
		items[i] = item
	}
	return items
}

func splitStatuses(filter string) []string {
	if filter == "" {
		return nil
	}
	var statuses []string
	for _, s := range strings.Split(filter, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// docJSON merges a document's id into its fields for serialization.
func docJSON(doc docstore.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out["id"] = doc.ID
	return out
}
