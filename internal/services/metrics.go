package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain counters exported by the services. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Intents        *prometheus.CounterVec
	Overrides      prometheus.Counter
	CartActions    prometheus.Counter
	CouponVerdicts *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg. Collectors
// already registered under the same names are reused, so several services
// may share one registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookshop",
				Name:      "chat_intents_total",
				Help:      "Chat turns dispatched, by resolved intent.",
			},
			[]string{"intent"},
		),
		Overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookshop",
			Name:      "chat_intent_overrides_total",
			Help:      "Low-confidence turns forced to the recommend intent.",
		}),
		CartActions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookshop",
			Name:      "chat_cart_actions_total",
			Help:      "Add-to-cart actions proposed to users.",
		}),
		CouponVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookshop",
				Name:      "coupon_verdicts_total",
				Help:      "Coupon validations, by verdict reason.",
			},
			[]string{"reason"},
		),
	}
	if reg != nil {
		m.Intents = register(reg, m.Intents)
		m.Overrides = register(reg, m.Overrides)
		m.CartActions = register(reg, m.CartActions)
		m.CouponVerdicts = register(reg, m.CouponVerdicts)
	}
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) intent(label string) {
	if m != nil {
		m.Intents.WithLabelValues(label).Inc()
	}
}

func (m *Metrics) override() {
	if m != nil {
		m.Overrides.Inc()
	}
}

func (m *Metrics) cartActions(n int) {
	if m != nil && n > 0 {
		m.CartActions.Add(float64(n))
	}
}

func (m *Metrics) couponVerdict(reason string) {
	if m != nil {
		m.CouponVerdicts.WithLabelValues(reason).Inc()
	}
}
