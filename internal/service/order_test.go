package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
)

// --- Mock store that fails every operation ---

var errStoreDown = errors.New("store unavailable")

type failStore struct{}

func (failStore) Collection(name string) docstore.Collection { return failCollection{} }
func (failStore) NextSeq(ctx context.Context, name string) (int64, error) {
	return 0, errStoreDown
}
func (failStore) EnsureSeq(ctx context.Context, name string, min int64) error { return errStoreDown }
func (failStore) Close()                                                      {}

type failCollection struct{}

func (failCollection) Add(ctx context.Context, data map[string]any) (string, error) {
	return "", errStoreDown
}
func (failCollection) Get(ctx context.Context, id string) (docstore.Document, error) {
	return docstore.Document{}, errStoreDown
}
func (failCollection) Set(ctx context.Context, id string, data map[string]any, merge bool) error {
	return errStoreDown
}
func (failCollection) Delete(ctx context.Context, id string) error { return errStoreDown }
func (failCollection) GetAll(ctx context.Context) ([]docstore.Document, error) {
	return nil, errStoreDown
}
func (failCollection) Count(ctx context.Context) (int64, error) { return 0, errStoreDown }
func (failCollection) Where(field, op string, value any) docstore.Query {
	return failCollection{}
}

// --- Recording publisher ---

type recordedEvent struct {
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

// --- Helpers ---

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// --- Tests ---

func TestCreateOrderAssignsSequentialNumbers(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)
	ctx := context.Background()

	for want := float64(1); want <= 3; want++ {
		doc, err := svc.Create(ctx, CreateOrderRequest{
			Items: []OrderItemInput{{Name: "Latte", UnitPrice: floatPtr(4.5)}},
		})
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if got := doc.Data["orderNumber"].(float64); got != want {
			t.Errorf("orderNumber = %v, want %v", got, want)
		}
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)

	doc, err := svc.Create(context.Background(), CreateOrderRequest{
		Items: []OrderItemInput{{Name: "Latte", Price: floatPtr(4)}},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if doc.Data["customer"] != "Unknown" {
		t.Errorf("customer = %v, want Unknown", doc.Data["customer"])
	}
	if doc.Data["station"] != enum.StationFrontCounter {
		t.Errorf("station = %v, want %s", doc.Data["station"], enum.StationFrontCounter)
	}
	if doc.Data["status"] != enum.OrderStatusPending {
		t.Errorf("status = %v, want pending", doc.Data["status"])
	}
	if _, ok := doc.Data["createdAt"].(string); !ok {
		t.Error("createdAt not stamped")
	}
	if _, present := doc.Data["completedAt"]; present {
		t.Error("completedAt must not be set at creation")
	}

	items := doc.Data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0].(map[string]any)
	// Quantity defaults to 1 and price falls back to the legacy field.
	if q := item["quantity"].(float64); q != 1 {
		t.Errorf("quantity = %v, want 1", q)
	}
	if p := item["unitPrice"].(float64); p != 4 {
		t.Errorf("unitPrice = %v, want 4", p)
	}
}

func TestCreateOrderPricing(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)

	doc, err := svc.Create(context.Background(), CreateOrderRequest{
		Customer: "Budi",
		Discount: 2,
		Items: []OrderItemInput{
			{Name: "Latte", Quantity: intPtr(2), UnitPrice: floatPtr(4.5)},
			{Name: "Muffin", Quantity: intPtr(1), UnitPrice: floatPtr(3)},
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if got := doc.Data["subtotal"].(float64); got != 12 {
		t.Errorf("subtotal = %v, want 12", got)
	}
	if got := doc.Data["total"].(float64); got != 10 {
		t.Errorf("total = %v, want 10", got)
	}
	// The legacy alias always mirrors total.
	if got := doc.Data["totalAmount"].(float64); got != 10 {
		t.Errorf("totalAmount = %v, want 10", got)
	}
	if got := doc.Data["discount"].(float64); got != 2 {
		t.Errorf("discount = %v, want 2", got)
	}
}

func TestCreateOrderPublishesEvent(t *testing.T) {
	store := docstore.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewOrderService(store, pub)

	if _, err := svc.Create(context.Background(), CreateOrderRequest{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	types := pub.types()
	if len(types) != 1 || types[0] != "order.created" {
		t.Errorf("published = %v, want [order.created]", types)
	}
}

func TestCreateOrderStoreFailure(t *testing.T) {
	svc := NewOrderService(failStore{}, nil)

	_, err := svc.Create(context.Background(), CreateOrderRequest{})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestTransitionStatusStampsCompletedAt(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.TransitionStatus(ctx, doc.ID, enum.OrderStatusPreparing); err != nil {
		t.Fatalf("TransitionStatus error: %v", err)
	}
	got, _ := svc.Get(ctx, doc.ID)
	if got.Data["status"] != enum.OrderStatusPreparing {
		t.Errorf("status = %v, want preparing", got.Data["status"])
	}
	if _, present := got.Data["completedAt"]; present {
		t.Error("completedAt must only be stamped on completion")
	}

	if err := svc.TransitionStatus(ctx, doc.ID, enum.OrderStatusCompleted); err != nil {
		t.Fatalf("TransitionStatus error: %v", err)
	}
	got, _ = svc.Get(ctx, doc.ID)
	if got.Data["status"] != enum.OrderStatusCompleted {
		t.Errorf("status = %v, want completed", got.Data["status"])
	}
	if _, ok := got.Data["completedAt"].(string); !ok {
		t.Error("completedAt not stamped on completion")
	}
}

func TestTransitionStatusAcceptsAnyString(t *testing.T) {
	// The lifecycle is advisory; unknown statuses are written verbatim.
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.TransitionStatus(ctx, doc.ID, "on-hold"); err != nil {
		t.Fatalf("TransitionStatus error: %v", err)
	}
	got, _ := svc.Get(ctx, doc.ID)
	if got.Data["status"] != "on-hold" {
		t.Errorf("status = %v, want on-hold", got.Data["status"])
	}
}

func TestTransitionStatusValidation(t *testing.T) {
	svc := NewOrderService(docstore.NewMemoryStore(), nil)
	ctx := context.Background()

	if err := svc.TransitionStatus(ctx, "", "ready"); !errors.Is(err, ErrMissingOrderID) {
		t.Errorf("expected ErrMissingOrderID, got %v", err)
	}
	if err := svc.TransitionStatus(ctx, "some-id", ""); !errors.Is(err, ErrMissingStatus) {
		t.Errorf("expected ErrMissingStatus, got %v", err)
	}
	if err := svc.TransitionStatus(ctx, "missing-id", "ready"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionStatusPublishesEvent(t *testing.T) {
	store := docstore.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewOrderService(store, pub)
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := svc.TransitionStatus(ctx, doc.ID, enum.OrderStatusReady); err != nil {
		t.Fatalf("TransitionStatus error: %v", err)
	}

	types := pub.types()
	if len(types) != 2 || types[1] != "order.status_updated" {
		t.Errorf("published = %v, want order.status_updated second", types)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewOrderService(store, nil)
	ctx := context.Background()

	for _, status := range []string{enum.OrderStatusPending, enum.OrderStatusReady, enum.OrderStatusCompleted} {
		doc, err := svc.Create(ctx, CreateOrderRequest{})
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if err := svc.TransitionStatus(ctx, doc.ID, status); err != nil {
			t.Fatalf("TransitionStatus error: %v", err)
		}
	}

	all := svc.List(ctx, "")
	if len(all) != 3 {
		t.Errorf("unfiltered list = %d orders, want 3", len(all))
	}

	active := svc.List(ctx, "pending, ready")
	if len(active) != 2 {
		t.Errorf("filtered list = %d orders, want 2", len(active))
	}
}

func TestListDegradesToEmptyOnStoreFailure(t *testing.T) {
	svc := NewOrderService(failStore{}, nil)

	docs := svc.List(context.Background(), "")
	if docs == nil {
		t.Fatal("List must return a non-nil slice")
	}
	if len(docs) != 0 {
		t.Errorf("got %d docs, want 0", len(docs))
	}
}
