package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	purchaseCompleted = "completed"
	purchaseRejected  = "rejected"
	purchaseFailed    = "failed"
)

// Metrics are domain counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Purchases   *prometheus.CounterVec
	Reviews     prometheus.Counter
	Adjustments prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_purchases_total",
				Help: "Checkout attempts by result",
			},
			[]string{"result"},
		),
		Reviews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_reviews_total",
			Help: "Reviews added",
		}),
		Adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_stock_adjustments_total",
			Help: "Administrative stock adjustments applied",
		}),
	}

	reg.MustRegister(m.Purchases, m.Reviews, m.Adjustments)
	return m
}

func (m *Metrics) purchase(result string) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(result).Inc()
}

func (m *Metrics) review() {
	if m == nil {
		return
	}
	m.Reviews.Inc()
}

func (m *Metrics) adjustment() {
	if m == nil {
		return
	}
	m.Adjustments.Inc()
}
