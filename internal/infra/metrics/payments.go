package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		ordersRevenueTotal,
		gatewayRequestsTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Orders by terminal status (succeeded/failed/refunded).",
		},
		[]string{"status"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_revenue_kopeks_total",
			Help: "Monetary value of succeeded orders in minor units, by currency.",
		},
		[]string{"currency"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Payment gateway API calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func AddOrderRevenue(currency string, amountKopeks int64) {
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountKopeks))
}

func IncGatewayRequest(op, outcome string) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(outcome)).Inc()
}
