package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/handler"
	"github.com/kopikita-pos/api/internal/service"
)

func newCatalogRouter(store docstore.Store) http.Handler {
	catalog := service.NewCatalogService(store)
	r := chi.NewRouter()
	r.Route("/api/menu", handler.NewMenuHandler(store, catalog).RegisterRoutes)
	r.Route("/api/inventory", handler.NewResourceHandler(store, enum.CollectionInventory).RegisterRoutes)
	return r
}

func addInventory(t *testing.T, store docstore.Store, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := store.Collection(enum.CollectionInventory).Add(context.Background(), map[string]any{
			"name": name,
		}); err != nil {
			t.Fatalf("add inventory: %v", err)
		}
	}
}

func TestResourceCreateAndList(t *testing.T) {
	store := docstore.NewMemoryStore()
	router := newCatalogRouter(store)

	body := `{"name":"Espresso Beans","currentStock":20,"minStock":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/inventory", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var created map[string]any
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if created["id"] == "" || created["id"] == nil {
		t.Error("expected server-assigned id")
	}
	if _, ok := created["createdAt"].(string); !ok {
		t.Error("createdAt not stamped")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var listed []map[string]any
	env = decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(listed) != 1 || listed[0]["name"] != "Espresso Beans" {
		t.Errorf("listed = %v", listed)
	}
}

func TestResourceCreateIgnoresClientID(t *testing.T) {
	store := docstore.NewMemoryStore()
	router := newCatalogRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/inventory", bytes.NewBufferString(`{"id":"mine","name":"Sugar"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var created map[string]any
	json.Unmarshal(env.Data, &created)
	if created["id"] == "mine" {
		t.Error("client-supplied id must be ignored")
	}
}

func TestResourceUpdateNotFound(t *testing.T) {
	router := newCatalogRouter(docstore.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPut, "/api/inventory/nope", bytes.NewBufferString(`{"currentStock":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResourceDelete(t *testing.T) {
	store := docstore.NewMemoryStore()
	router := newCatalogRouter(store)

	id, err := store.Collection(enum.CollectionInventory).Add(context.Background(), map[string]any{"name": "Sugar"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/inventory/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	count, _ := store.Collection(enum.CollectionInventory).Count(context.Background())
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestMenuCreateFiltersIngredients(t *testing.T) {
	store := docstore.NewMemoryStore()
	addInventory(t, store, "Espresso Beans", "Whole Milk")
	router := newCatalogRouter(store)

	body := `{"name":"Latte","price":4.5,"ingredients":["Espresso Beans","Whole Milk","Unicorn Dust"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/menu", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var created map[string]any
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	ingredients := created["ingredients"].([]any)
	if len(ingredients) != 2 {
		t.Errorf("acknowledged ingredients = %v, unknown names must be dropped", ingredients)
	}
}

func TestMenuListSelfHeals(t *testing.T) {
	store := docstore.NewMemoryStore()
	addInventory(t, store, "Espresso Beans")
	router := newCatalogRouter(store)

	// Stored document carries a dangling ingredient, as if the inventory
	// item was deleted after the menu item was written.
	id, err := store.Collection(enum.CollectionMenu).Add(context.Background(), map[string]any{
		"name":        "Latte",
		"ingredients": []string{"Espresso Beans", "Oat Milk"},
	})
	if err != nil {
		t.Fatalf("add menu: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var listed []map[string]any
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d items, want 1", len(listed))
	}
	got := listed[0]["ingredients"].([]any)
	if len(got) != 1 || got[0] != "Espresso Beans" {
		t.Errorf("response ingredients = %v, want [Espresso Beans]", got)
	}

	// The correction is re-persisted in the background.
	deadline := time.Now().Add(2 * time.Second)
	for {
		doc, err := store.Collection(enum.CollectionMenu).Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get menu: %v", err)
		}
		if raw, ok := doc.Data["ingredients"].([]any); ok && len(raw) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background cleanup never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMenuListWithoutIngredientsField(t *testing.T) {
	store := docstore.NewMemoryStore()
	router := newCatalogRouter(store)

	if _, err := store.Collection(enum.CollectionMenu).Add(context.Background(), map[string]any{
		"name":  "Bottled Water",
		"price": 1.5,
	}); err != nil {
		t.Fatalf("add menu: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var listed []map[string]any
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(listed) != 1 || listed[0]["name"] != "Bottled Water" {
		t.Errorf("listed = %v", listed)
	}
}
