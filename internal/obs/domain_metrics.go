package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesCreatedTotal counts finalized invoices by payment method.
	InvoicesCreatedTotal *prometheus.CounterVec
	// InvoiceTotalsMismatchTotal counts invoices whose submitted totals differed from the recomputed ones.
	InvoiceTotalsMismatchTotal prometheus.Counter
	// DraftRecomputationsTotal counts draft total recomputations by triggering mutation.
	DraftRecomputationsTotal *prometheus.CounterVec
	// ReportCacheTotal counts report cache lookups by result (hit, miss, error).
	ReportCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of finalized invoices by payment method.",
		}, []string{"payment_method"})
		InvoiceTotalsMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_totals_mismatch_total",
			Help:      "Invoices whose submitted totals were replaced by the server computation.",
		})
		DraftRecomputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_recomputations_total",
			Help:      "Count of draft total recomputations by trigger.",
		}, []string{"trigger"})
		ReportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, InvoicesCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoicesCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, InvoiceTotalsMismatchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				InvoiceTotalsMismatchTotal = v
			}
		})
		mustRegisterCollector(reg, DraftRecomputationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DraftRecomputationsTotal = v
			}
		})
		mustRegisterCollector(reg, ReportCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportCacheTotal = v
			}
		})
	})
}

// InvoiceCreated records a finalized invoice. It is a no-op before registration.
func InvoiceCreated(paymentMethod string) {
	if InvoicesCreatedTotal != nil {
		InvoicesCreatedTotal.WithLabelValues(paymentMethod).Inc()
	}
}

// InvoiceTotalsMismatch records a client/server totals disagreement.
func InvoiceTotalsMismatch() {
	if InvoiceTotalsMismatchTotal != nil {
		InvoiceTotalsMismatchTotal.Inc()
	}
}

// DraftRecomputed records one draft recomputation.
func DraftRecomputed(trigger string) {
	if DraftRecomputationsTotal != nil {
		DraftRecomputationsTotal.WithLabelValues(trigger).Inc()
	}
}

// ReportCacheLookup records a report cache hit, miss or error.
func ReportCacheLookup(result string) {
	if ReportCacheTotal != nil {
		ReportCacheTotal.WithLabelValues(result).Inc()
	}
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
