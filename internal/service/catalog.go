package service

import (
	"context"
	"log"
	"time"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/model"
)

// cleanupTimeout bounds the detached ingredient re-persist write.
const cleanupTimeout = 10 * time.Second

// CatalogService reconciles menu-item ingredient lists against the inventory
// catalog. Ingredients reference inventory items by name only, so renames and
// deletions in inventory leave dangling names behind; reads self-heal them.
type CatalogService struct {
	store docstore.Store
}

func NewCatalogService(store docstore.Store) *CatalogService {
	return &CatalogService{store: store}
}

// InventoryNames returns the set of current inventory item names. A read
// failure yields an absent set (nil) so callers can skip filtering rather
// than fail the read.
func (s *CatalogService) InventoryNames(ctx context.Context) map[string]bool {
	docs, err := s.store.Collection(enum.CollectionInventory).GetAll(ctx)
	if err != nil {
		log.Printf("ERROR: load inventory for ingredient check: %v", err)
		return nil
	}
	names := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if name := model.String(doc.Data, "", "name"); name != "" {
			names[name] = true
		}
	}
	return names
}

// FilterIngredients keeps only ingredient names present in the inventory set.
// Idempotent: filtering an already-filtered list changes nothing.
func FilterIngredients(ingredients []string, inventory map[string]bool) (filtered []string, changed bool) {
	filtered = make([]string, 0, len(ingredients))
	for _, name := range ingredients {
		if inventory[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered, len(filtered) != len(ingredients)
}

// CleanMenuDoc returns the menu document with dangling ingredients pruned.
// When pruning changed the list, the corrected list is re-persisted by a
// detached background write; the caller always gets the filtered view
// immediately, and a failure of that write is logged, never surfaced. When
// inventory is nil (inventory read failed) the document passes through as is.
func (s *CatalogService) CleanMenuDoc(ctx context.Context, doc docstore.Document, inventory map[string]bool) docstore.Document {
	if inventory == nil {
		return doc
	}
	ingredients := model.Strings(doc.Data["ingredients"])
	if ingredients == nil {
		return doc
	}
	filtered, changed := FilterIngredients(ingredients, inventory)
	if !changed {
		return doc
	}

	cleaned := docstore.Document{ID: doc.ID, Data: make(map[string]any, len(doc.Data))}
	for k, v := range doc.Data {
		cleaned.Data[k] = v
	}
	cleaned.Data["ingredients"] = filtered

	go s.persistCleanup(doc.ID, filtered)
	return cleaned
}

// ValidIngredients applies the filter synchronously for the menu write path:
// the acknowledged write must only ever contain valid ingredient names.
func (s *CatalogService) ValidIngredients(ctx context.Context, ingredients []string) []string {
	inventory := s.InventoryNames(ctx)
	if inventory == nil {
		return ingredients
	}
	filtered, _ := FilterIngredients(ingredients, inventory)
	return filtered
}

// persistCleanup is the fire-and-forget half of the read-path self-heal. It
// runs off the request context on purpose: the response must not wait for it.
func (s *CatalogService) persistCleanup(menuID string, ingredients []string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	err := s.store.Collection(enum.CollectionMenu).Set(ctx, menuID, map[string]any{
		"ingredients": ingredients,
		"updatedAt":   docstore.ServerTimestamp,
	}, true)
	if err != nil {
		log.Printf("ERROR: persist ingredient cleanup for menu item %s: %v", menuID, err)
	}
}
