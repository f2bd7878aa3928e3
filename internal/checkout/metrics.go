package checkout

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	checkoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Total number of checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Checkout duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	checkoutTxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_tx_retries_total",
			Help: "Total number of retried checkout transactions",
		},
	)
)

func init() {
	prometheus.MustRegister(checkoutTotal)
	prometheus.MustRegister(checkoutDuration)
	prometheus.MustRegister(checkoutTxRetries)
}

const (
	outcomeCreated        = "created"
	outcomeReplayed       = "replayed"
	outcomeValidation     = "validation"
	outcomeEmptyCart      = "empty_cart"
	outcomeStockExhausted = "stock_exhausted"
	outcomeBusy           = "busy"
	outcomeFailed         = "failed"
)

func recordCheckout(outcome string, elapsed time.Duration) {
	checkoutTotal.WithLabelValues(outcome).Inc()
	checkoutDuration.Observe(elapsed.Seconds())
}

// RetryObserver logs and counts transaction retries. It is meant for
// database.TxOptions.OnRetry.
func RetryObserver(logger *zap.Logger) func(attempt int, err error) {
	return func(attempt int, err error) {
		checkoutTxRetries.Inc()
		logger.Warn("Retrying checkout transaction",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
}
