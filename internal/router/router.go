package router

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kopikita-pos/api/internal/config"
	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/events"
	"github.com/kopikita-pos/api/internal/handler"
	"github.com/kopikita-pos/api/internal/middleware"
	"github.com/kopikita-pos/api/internal/service"
	"github.com/kopikita-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, store docstore.Store, hub *ws.Hub, publisher events.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// WebSocket order feed
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	loc := loadLocation(cfg.Timezone)
	catalog := service.NewCatalogService(store)

	r.Route("/api", func(r chi.Router) {
		// Orders
		orderService := service.NewOrderService(store, publisher)
		orderHandler := handler.NewOrderHandler(orderService)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Menu (with ingredient reconciliation)
		menuHandler := handler.NewMenuHandler(store, catalog)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Inventory, add-ons, discount codes
		r.Route("/inventory", handler.NewResourceHandler(store, enum.CollectionInventory).RegisterRoutes)
		r.Route("/addons", handler.NewResourceHandler(store, enum.CollectionAddons).RegisterRoutes)
		r.Route("/discounts", handler.NewResourceHandler(store, enum.CollectionDiscounts).RegisterRoutes)

		// Analytics
		analyticsHandler := handler.NewAnalyticsHandler(service.NewAnalyticsService(store, loc))
		r.Route("/analytics", analyticsHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}

// loadLocation resolves the configured timezone, falling back to the process
// zone when the name is unknown.
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("ERROR: load timezone %q, using local: %v", name, err)
		return time.Local
	}
	return loc
}
