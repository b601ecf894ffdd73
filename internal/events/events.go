// Package events fans order lifecycle events out to interested sinks: the
// in-process websocket hub and, when configured, a RabbitMQ exchange.
package events

// Event types published by the order lifecycle.
const (
	OrderCreated       = "order.created"
	OrderStatusUpdated = "order.status_updated"
)

// Publisher delivers an order event to a sink. Delivery is best effort:
// implementations log failures and never surface them to the order caller.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Fanout publishes to every configured sink.
type Fanout []Publisher

func (f Fanout) Publish(eventType string, payload any) {
	for _, p := range f {
		p.Publish(eventType, payload)
	}
}
