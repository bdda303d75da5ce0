package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PurchaseOK         = "ok"
	PurchaseOutOfStock = "out_of_stock"
	PurchaseNotFound   = "not_found"
	PurchaseError      = "error"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	purchases *prometheus.CounterVec
	uploads   *prometheus.CounterVec
}

// New registers the storefront collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweetshop_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweetshop_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweetshop_purchases_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"result"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweetshop_image_uploads_total",
		Help: "Product image uploads by outcome.",
	}, []string{"result"})
	reg.MustRegister(requests, latency, purchases, uploads)
	return &Metrics{
		requests:  requests,
		latency:   latency,
		purchases: purchases,
		uploads:   uploads,
	}
}

func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (m *Metrics) IncPurchase(result string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(result).Inc()
}

func (m *Metrics) IncUpload(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.uploads.WithLabelValues(result).Inc()
}
