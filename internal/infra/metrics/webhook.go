package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookDeliveriesTotal,
		webhookDuplicatesTotal,
		webhookFormatErrorsTotal,
	)
}

var (
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Gateway webhook deliveries by handling result.",
		},
		[]string{"result"},
	)

	webhookDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicates_total",
			Help: "Deliveries short-circuited by the idempotency guard.",
		},
	)

	webhookFormatErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_provision_format_errors_total",
			Help: "Provisioned accounts whose response carried no handle; order left pending for manual review.",
		},
	)
)

func IncWebhookDelivery(result string) {
	webhookDeliveriesTotal.WithLabelValues(norm(result)).Inc()
}

func IncWebhookDuplicate()   { webhookDuplicatesTotal.Inc() }
func IncProvisionFormatErr() { webhookFormatErrorsTotal.Inc() }
