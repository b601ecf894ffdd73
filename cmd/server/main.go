package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/kopikita-pos/api/internal/config"
	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/events"
	"github.com/kopikita-pos/api/internal/router"
	"github.com/kopikita-pos/api/internal/service"
	"github.com/kopikita-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open document store: %v", err)
	}
	defer store.Close()
	log.Println("Connected to document store")

	// Reconcile the order-number sequence with pre-existing data so numbering
	// continues from the current order count.
	count, err := store.Collection(enum.CollectionOrders).Count(ctx)
	if err != nil {
		log.Fatalf("Unable to count orders: %v", err)
	}
	if err := store.EnsureSeq(ctx, enum.CollectionOrders, count); err != nil {
		log.Fatalf("Unable to reconcile order sequence: %v", err)
	}

	if err := service.SeedDefaults(ctx, store); err != nil {
		log.Fatalf("Unable to seed default data: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	publisher := events.Fanout{hub}
	if cfg.RabbitMQURL != "" {
		rmq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.OrderExchange)
		if err != nil {
			log.Fatalf("Unable to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()
		publisher = append(publisher, rmq)
		log.Printf("Publishing order events to exchange %q", cfg.OrderExchange)
	}

	r := router.New(cfg, store, hub, publisher)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}

// openStore builds the process-wide store handle. DATABASE_URL=memory selects
// the in-memory backend for local runs without Postgres.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	if cfg.DatabaseURL == "memory" {
		return docstore.NewMemoryStore(), nil
	}
	return docstore.Open(ctx, cfg.DatabaseURL)
}
