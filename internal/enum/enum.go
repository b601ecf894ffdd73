package enum

// ── Order status state machine ──
// The canonical lifecycle is pending → preparing → ready → completed.
// Statuses are stored as free-form strings; these are the values the
// dashboard and kitchen displays understand.

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
)

// ── Fulfillment stations (configurable labels, no constraint) ──

const (
	StationFrontCounter = "front-counter"
	StationBar          = "bar"
	StationKitchen      = "kitchen"
)

// ── Document collections ──

const (
	CollectionOrders    = "orders"
	CollectionMenu      = "menu"
	CollectionInventory = "inventory"
	CollectionAddons    = "addons"
	CollectionDiscounts = "discounts"
)
