// Package model decodes schemaless store documents into the typed views the
// services work with. Stored data may predate this server, so every reader
// applies the documented defaulting rules instead of trusting field presence.
package model

import (
	"time"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
)

// LineItem is a single order line.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is the typed view of an order document.
type Order struct {
	ID          string
	Number      int64
	Customer    string
	Items       []LineItem
	Subtotal    float64
	Discount    float64
	Total       float64
	Status      string
	Station     string
	CreatedAt   time.Time
	CompletedAt time.Time
	HasCreated  bool
	HasComplete bool
}

// MenuItem is the typed view of a menu document.
type MenuItem struct {
	ID          string
	Name        string
	Price       float64
	Ingredients []string
}

// InventoryItem is the typed view of an inventory document. currentStock and
// minStock have legacy aliases (quantity, minThreshold) in older data.
type InventoryItem struct {
	ID           string
	Name         string
	CurrentStock float64
	MinStock     float64
}

// OrderFromDoc decodes an order document, applying defaults.
func OrderFromDoc(doc docstore.Document) Order {
	o := Order{
		ID:       doc.ID,
		Number:   int64(Float(doc.Data, 0, "orderNumber")),
		Customer: String(doc.Data, "Unknown", "customer"),
		Subtotal: Float(doc.Data, 0, "subtotal"),
		Discount: Float(doc.Data, 0, "discount"),
		Total:    Float(doc.Data, 0, "total", "totalAmount"),
		Status:   String(doc.Data, enum.OrderStatusPending, "status"),
		Station:  String(doc.Data, enum.StationFrontCounter, "station"),
		Items:    ItemsFromValue(doc.Data["items"]),
	}
	o.CreatedAt, o.HasCreated = Time(doc.Data, "createdAt")
	o.CompletedAt, o.HasComplete = Time(doc.Data, "completedAt")
	return o
}

// MenuItemFromDoc decodes a menu document.
func MenuItemFromDoc(doc docstore.Document) MenuItem {
	return MenuItem{
		ID:          doc.ID,
		Name:        String(doc.Data, "", "name"),
		Price:       Float(doc.Data, 0, "price"),
		Ingredients: Strings(doc.Data["ingredients"]),
	}
}

// InventoryItemFromDoc decodes an inventory document, accepting both the
// current and legacy stock field names.
func InventoryItemFromDoc(doc docstore.Document) InventoryItem {
	return InventoryItem{
		ID:           doc.ID,
		Name:         String(doc.Data, "", "name"),
		CurrentStock: Float(doc.Data, 0, "currentStock", "quantity"),
		MinStock:     Float(doc.Data, 0, "minStock", "minThreshold"),
	}
}

// ItemsFromValue decodes a raw items field into line items with defaults:
// quantity 1 when absent, unitPrice falling back to price then 0.
func ItemsFromValue(v any) []LineItem {
	rawItems, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, LineItem{
			Name:      String(fields, "", "name"),
			Quantity:  int(Float(fields, 1, "quantity")),
			UnitPrice: Float(fields, 0, "unitPrice", "price"),
		})
	}
	return items
}

// --- Field accessors ---

// String returns the first present string field, else the fallback.
func String(data map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// Float returns the first present numeric field, else the fallback. JSON
// decoding yields float64; integers written by Go callers are also accepted.
func Float(data map[string]any, fallback float64, keys ...string) float64 {
	for _, key := range keys {
		switch n := data[key].(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int32:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return fallback
}

// Time returns the named timestamp field. Stored timestamps are RFC3339
// strings; in-process writes may still hold time.Time.
func Time(data map[string]any, key string) (time.Time, bool) {
	switch t := data[key].(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// Strings decodes a raw field into a string slice.
func Strings(v any) []string {
	switch raw := v.(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
