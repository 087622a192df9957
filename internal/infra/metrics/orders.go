package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersPaidTotal,
		ordersRevenueTotal,
		remindersTotal,
	)
}

var (
	ordersPaidTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_paid_total",
			Help: "Paid orders by delivery type.",
		},
		[]string{"delivery_type"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_revenue_minor_total",
			Help: "Sum of paid amounts in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_total",
			Help: "Delayed reminders by status (scheduled/sent/failed).",
		},
		[]string{"status"},
	)
)

func IncOrderPaid(deliveryType, currency string, amountMinor int64) {
	ordersPaidTotal.WithLabelValues(norm(deliveryType)).Inc()
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}

func IncReminder(status string) {
	remindersTotal.WithLabelValues(norm(status)).Inc()
}
