package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"upendo/backend/internal/events"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	stockMovements   *prometheus.CounterVec
	saleOperations   *prometheus.CounterVec
	payments         *prometheus.CounterVec
	reorderDecisions *prometheus.CounterVec
	productStock     *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "upendo"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Committed stock movements by kind",
		}, []string{"kind"}),
		saleOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_operations_total",
			Help:      "Committed sale creations, edits and deletions",
		}, []string{"operation"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Committed payment records and status changes",
		}, []string{"event", "method", "status"}),
		reorderDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorder_evaluations_total",
			Help:      "Reorder evaluations by outcome",
		}, []string{"outcome"}),
		productStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "product_stock_quantity",
			Help:      "Last committed stock quantity per product",
		}, []string{"product_id"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.stockMovements,
		m.saleOperations,
		m.payments,
		m.reorderDecisions,
		m.productStock,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe is an events.Handler recording committed domain activity.
func (m *Metrics) Observe(_ context.Context, event events.Event) {
	for productID, qty := range event.StockLevels {
		m.productStock.WithLabelValues(productID).Set(float64(qty))
	}

	switch event.Kind {
	case events.StockChanged:
		m.stockMovements.WithLabelValues(label(event, "kind")).Inc()
	case events.SaleCreated:
		m.saleOperations.WithLabelValues("create").Inc()
	case events.SaleUpdated:
		m.saleOperations.WithLabelValues("edit").Inc()
	case events.SaleDeleted:
		m.saleOperations.WithLabelValues("delete").Inc()
	case events.PaymentRecorded:
		m.payments.WithLabelValues("recorded", label(event, "method"), label(event, "sale_status")).Inc()
	case events.PaymentStatusChanged:
		m.payments.WithLabelValues("status_changed", label(event, "method"), label(event, "sale_status")).Inc()
	case events.ReorderEvaluated:
		m.reorderDecisions.WithLabelValues(label(event, "outcome")).Inc()
	}
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func label(event events.Event, key string) string {
	if v, ok := event.Labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
