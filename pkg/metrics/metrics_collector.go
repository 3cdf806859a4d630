package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 支付回调指标收集器
type Collector struct {
	callbacksTotal      *prometheus.CounterVec
	callbackDuration    prometheus.Histogram
	lockContentionTotal prometheus.Counter
	fulfillmentFailures *prometheus.CounterVec
}

// NewCollector 创建指标收集器，注册到默认 registry
func NewCollector() *Collector {
	return &Collector{
		callbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_callbacks_total",
				Help: "Total number of payment callbacks by outcome",
			},
			[]string{"outcome"},
		),

		callbackDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payment_callback_duration_seconds",
				Help:    "Payment callback processing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		lockContentionTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "payment_lock_contention_total",
				Help: "Number of callbacks rejected due to order lock contention",
			},
		),

		fulfillmentFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_fulfillment_failures_total",
				Help: "Number of fulfillment failures by product type",
			},
			[]string{"product_type"},
		),
	}
}

// ObserveCallback 记录一次回调处理结果
// outcome 取值：success / rejected / contention / error
func (c *Collector) ObserveCallback(outcome string, cost time.Duration) {
	if c == nil {
		return
	}
	c.callbacksTotal.WithLabelValues(outcome).Inc()
	c.callbackDuration.Observe(cost.Seconds())
}

// LockContention 记录一次锁竞争
func (c *Collector) LockContention() {
	if c == nil {
		return
	}
	c.lockContentionTotal.Inc()
}

// FulfillmentFailure 记录一次发货失败
func (c *Collector) FulfillmentFailure(productType string) {
	if c == nil {
		return
	}
	c.fulfillmentFailures.WithLabelValues(productType).Inc()
}
