package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kopikita-pos/api/internal/service"
)

// AnalyticsProvider defines the aggregation methods needed by analytics
// handlers. Satisfied by *service.AnalyticsService.
type AnalyticsProvider interface {
	Dashboard(ctx context.Context) service.DashboardSummary
	Report(ctx context.Context, period string) service.SalesReport
}

// AnalyticsHandler handles dashboard and sales-report endpoints. Both are
// pure read paths: the aggregator absorbs store failures into safe defaults,
// so these endpoints never return an error envelope.
type AnalyticsHandler struct {
	svc AnalyticsProvider
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsProvider) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// RegisterRoutes registers analytics endpoints on the given Chi router.
// Expected to be mounted at /api/analytics.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/sales-report", h.GetSalesReport)
}

// GetDashboard handles GET /api/analytics/dashboard.
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.svc.Dashboard(r.Context()))
}

// GetSalesReport handles GET /api/analytics/sales-report?period=today|week|month.
func (h *AnalyticsHandler) GetSalesReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = service.PeriodToday
	}
	writeSuccess(w, http.StatusOK, h.svc.Report(r.Context(), period))
}
