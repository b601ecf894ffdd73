package service

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/kopikita-pos/api/internal/docstore"
	"github.com/kopikita-pos/api/internal/enum"
	"github.com/kopikita-pos/api/internal/model"
	"github.com/shopspring/decimal"
)

// Report periods.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// DashboardSummary is the derived, non-persisted dashboard projection.
type DashboardSummary struct {
	TodaySales          float64 `json:"todaySales"`
	TodayOrders         int     `json:"todayOrders"`
	CompletionRate      int     `json:"completionRate"`
	AverageDeliveryTime int     `json:"averageDeliveryTime"`
	InventoryAlerts     int     `json:"inventoryAlerts"`
	AverageOrderTime    int     `json:"averageOrderTime"`
}

// SalesReport is the derived sales projection for a period.
type SalesReport struct {
	Period            string                  `json:"period"`
	StartDate         time.Time               `json:"startDate"`
	EndDate           time.Time               `json:"endDate"`
	TotalSales        float64                 `json:"totalSales"`
	TotalOrders       int                     `json:"totalOrders"`
	AverageOrderValue float64                 `json:"averageOrderValue"`
	TopSellingItems   []ItemSales             `json:"topSellingItems"`
	HourlySales       map[string]HourlyBucket `json:"hourlySales"`
}

// ItemSales is one ranked entry in the top-sellers list.
type ItemSales struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// HourlyBucket accumulates sales for one hour of the day.
type HourlyBucket struct {
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
}

const topSellingLimit = 10

// AnalyticsService derives dashboard and sales-report metrics from the stored
// order collection. Every computation is a full-window scan taken at call
// time; staleness is bounded only by call latency.
type AnalyticsService struct {
	store docstore.Store
	loc   *time.Location
	now   func() time.Time
}

// NewAnalyticsService creates an AnalyticsService computing windows in loc.
func NewAnalyticsService(store docstore.Store, loc *time.Location) *AnalyticsService {
	return &AnalyticsService{store: store, loc: loc, now: time.Now}
}

// Dashboard summarizes today's orders and current inventory alerts. On any
// read failure the whole summary degrades to a fixed default payload rather
// than propagating an error; the dashboard always renders.
func (s *AnalyticsService) Dashboard(ctx context.Context) DashboardSummary {
	fallback := DashboardSummary{
		AverageDeliveryTime: 15,
		InventoryAlerts:     2,
		AverageOrderTime:    12,
	}

	now := s.now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	docs, err := s.store.Collection(enum.CollectionOrders).
		Where("createdAt", docstore.OpGTE, startOfDay).
		GetAll(ctx)
	if err != nil {
		log.Printf("ERROR: dashboard order scan: %v", err)
		return fallback
	}

	inventoryDocs, err := s.store.Collection(enum.CollectionInventory).GetAll(ctx)
	if err != nil {
		log.Printf("ERROR: dashboard inventory scan: %v", err)
		return fallback
	}

	sales := decimal.Zero
	completed := 0
	deliveryTotal := 0.0
	deliverySamples := 0
	for _, doc := range docs {
		order := model.OrderFromDoc(doc)
		sales = sales.Add(decimal.NewFromFloat(order.Total))
		if order.Status != enum.OrderStatusCompleted {
			continue
		}
		completed++
		if order.HasCreated && order.HasComplete {
			deliveryTotal += order.CompletedAt.Sub(order.CreatedAt).Minutes()
			deliverySamples++
		}
	}

	summary := DashboardSummary{
		TodaySales:  round2(sales),
		TodayOrders: len(docs),
	}
	if len(docs) > 0 {
		summary.CompletionRate = roundInt(100 * float64(completed) / float64(len(docs)))
	}
	// 15 minutes is the assumed delivery time until real samples exist.
	summary.AverageDeliveryTime = 15
	if deliverySamples > 0 {
		summary.AverageDeliveryTime = roundInt(deliveryTotal / float64(deliverySamples))
	}
	// Preparation time is not measured independently; it is estimated as a
	// fixed ratio of delivery time.
	summary.AverageOrderTime = roundInt(float64(summary.AverageDeliveryTime) * 0.8)

	for _, doc := range inventoryDocs {
		item := model.InventoryItemFromDoc(doc)
		if item.CurrentStock <= item.MinStock {
			summary.InventoryAlerts++
		}
	}
	return summary
}

// Report aggregates sales for the requested period (today, week, or month;
// anything else resolves to today's bounds). On a read failure the report for
// the requested period comes back with zeroed totals and empty rankings.
func (s *AnalyticsService) Report(ctx context.Context, period string) SalesReport {
	start, end := s.resolvePeriod(period)
	report := SalesReport{
		Period:          period,
		StartDate:       start,
		EndDate:         end,
		TopSellingItems: []ItemSales{},
		HourlySales:     map[string]HourlyBucket{},
	}

	docs, err := s.store.Collection(enum.CollectionOrders).
		Where("createdAt", docstore.OpGTE, start).
		Where("createdAt", docstore.OpLTE, end).
		GetAll(ctx)
	if err != nil {
		log.Printf("ERROR: sales report scan (%s): %v", period, err)
		return report
	}

	type itemAgg struct {
		name     string
		quantity int
		revenue  decimal.Decimal
	}

	totalSales := decimal.Zero
	itemIndex := make(map[string]*itemAgg)
	var itemOrder []*itemAgg // first-seen accumulation order, kept for stable ties
	hourly := make(map[string]*struct {
		sales  decimal.Decimal
		orders int
	})

	for _, doc := range docs {
		order := model.OrderFromDoc(doc)
		totalSales = totalSales.Add(decimal.NewFromFloat(order.Total))

		for _, item := range order.Items {
			agg, ok := itemIndex[item.Name]
			if !ok {
				agg = &itemAgg{name: item.Name}
				itemIndex[item.Name] = agg
				itemOrder = append(itemOrder, agg)
			}
			agg.quantity += item.Quantity
			agg.revenue = agg.revenue.Add(
				decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		if order.HasCreated {
			key := order.CreatedAt.In(s.loc).Format("15") + ":00"
			bucket, ok := hourly[key]
			if !ok {
				bucket = &struct {
					sales  decimal.Decimal
					orders int
				}{}
				hourly[key] = bucket
			}
			bucket.sales = bucket.sales.Add(decimal.NewFromFloat(order.Total))
			bucket.orders++
		}
	}

	report.TotalSales = round2(totalSales)
	report.TotalOrders = len(docs)
	if len(docs) > 0 {
		// Average is derived from the already-rounded total so the published
		// figures stay mutually consistent.
		report.AverageOrderValue = round2(decimal.NewFromFloat(report.TotalSales).Div(decimal.NewFromInt(int64(len(docs)))))
	}

	sort.SliceStable(itemOrder, func(i, j int) bool {
		return itemOrder[i].quantity > itemOrder[j].quantity
	})
	for i, agg := range itemOrder {
		if i == topSellingLimit {
			break
		}
		report.TopSellingItems = append(report.TopSellingItems, ItemSales{
			Name:     agg.name,
			Quantity: agg.quantity,
			Revenue:  round2(agg.revenue),
		})
	}

	for key, bucket := range hourly {
		report.HourlySales[key] = HourlyBucket{
			Sales:  round2(bucket.sales),
			Orders: bucket.orders,
		}
	}
	return report
}

// resolvePeriod returns the inclusive [start, end] window for a period.
func (s *AnalyticsService) resolvePeriod(period string) (time.Time, time.Time) {
	now := s.now().In(s.loc)
	switch period {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	case PeriodMonth:
		return now.AddDate(0, -1, 0), now
	default: // today
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		return start, start.AddDate(0, 0, 1)
	}
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
