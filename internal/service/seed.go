package service

import (
	"context"
	"fmt"
	"log"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
)

// Default catalog data written into empty collections. An empty collection is
// a valid state everywhere else; seeding only gives a fresh install something
// to sell.
var (
	defaultAddons = []map[string]any{
		{"name": "Extra Shot", "price": 0.75},
		{"name": "Oat Milk", "price": 0.60},
		{"name": "Vanilla Syrup", "price": 0.50},
		{"name": "Whipped Cream", "price": 0.50},
	}

	defaultDiscounts = []map[string]any{
		{"code": "WELCOME10", "amount": 1.00, "description": "First visit"},
		{"code": "STUDENT", "amount": 0.50, "description": "Student discount"},
	}

	defaultInventory = []map[string]any{
		{"name": "Espresso Beans", "currentStock": 40, "minStock": 10},
		{"name": "Whole Milk", "currentStock": 24, "minStock": 8},
		{"name": "Oat Milk", "currentStock": 12, "minStock": 4},
		{"name": "Flour", "currentStock": 20, "minStock": 5},
		{"name": "Butter", "currentStock": 15, "minStock": 5},
		{"name": "Blueberries", "currentStock": 8, "minStock": 3},
	}

	defaultMenu = []map[string]any{
		{"name": "Espresso", "price": 2.50, "ingredients": []string{"Espresso Beans"}},
		{"name": "Latte", "price": 4.50, "ingredients": []string{"Espresso Beans", "Whole Milk"}},
		{"name": "Cappuccino", "price": 4.00, "ingredients": []string{"Espresso Beans", "Whole Milk"}},
		{"name": "Oat Latte", "price": 5.00, "ingredients": []string{"Espresso Beans", "Oat Milk"}},
		{"name": "Blueberry Muffin", "price": 2.50, "ingredients": []string{"Flour", "Butter", "Blueberries"}},
	}
)

// SeedDefaults fills each empty catalog collection with its defaults.
// Idempotent: collections that already hold documents are left untouched.
// Inventory is seeded before menu so default ingredients resolve.
func SeedDefaults(ctx context.Context, store docstore.Store) error {
	seeds := []struct {
		collection string
		docs       []map[string]any
	}{
		{enum.CollectionAddons, defaultAddons},
		{enum.CollectionDiscounts, defaultDiscounts},
		{enum.CollectionInventory, defaultInventory},
		{enum.CollectionMenu, defaultMenu},
	}

	for _, seed := range seeds {
		coll := store.Collection(seed.collection)
		count, err := coll.Count(ctx)
		if err != nil {
			return fmt.Errorf("count %s: %w", seed.collection, err)
		}
		if count > 0 {
			continue
		}
		for _, data := range seed.docs {
			doc := make(map[string]any, len(data)+2)
			for k, v := range data {
				doc[k] = v
			}
			doc["createdAt"] = docstore.ServerTimestamp
			doc["updatedAt"] = docstore.ServerTimestamp
			if _, err := coll.Add(ctx, doc); err != nil {
				return fmt.Errorf("seed %s: %w", seed.collection, err)
			}
		}
		log.Printf("Seeded %d default documents into %s", len(seed.docs), seed.collection)
	}
	return nil
}
