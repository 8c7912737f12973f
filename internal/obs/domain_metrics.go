package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DealsPricedTotal counts full deal recomputations by outcome.
	DealsPricedTotal *prometheus.CounterVec
	// ApprovalsRequiredTotal counts approval requirements emitted per approver.
	ApprovalsRequiredTotal *prometheus.CounterVec
	// QuoteEmailTotal counts quote email deliveries by outcome.
	QuoteEmailTotal *prometheus.CounterVec
	// SettingsUpdateTotal counts configuration replacements by action.
	SettingsUpdateTotal *prometheus.CounterVec
	// DealComputeLatency records end-to-end fact application latency in milliseconds.
	DealComputeLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DealsPricedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_priced_total",
			Help:      "Count of deal pricing recomputations by outcome.",
		}, []string{"result"})
		ApprovalsRequiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_required_total",
			Help:      "Count of approval requirements produced, by approver.",
		}, []string{"approver"})
		QuoteEmailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_email_total",
			Help:      "Count of quote email deliveries by outcome.",
		}, []string{"result"})
		SettingsUpdateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_update_total",
			Help:      "Count of configuration replacements by action.",
		}, []string{"action"})
		DealComputeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deal_compute_duration_ms",
			Help:      "Latency for applying deal facts end to end in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"result"})

		mustRegisterCollector(reg, DealsPricedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DealsPricedTotal = v
			}
		})
		mustRegisterCollector(reg, ApprovalsRequiredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ApprovalsRequiredTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteEmailTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteEmailTotal = v
			}
		})
		mustRegisterCollector(reg, SettingsUpdateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettingsUpdateTotal = v
			}
		})
		mustRegisterCollector(reg, DealComputeLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				DealComputeLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
