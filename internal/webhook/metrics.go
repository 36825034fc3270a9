package webhook

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveryOK = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_webhook_deliveries_total",
			Help: "Webhook deliveries that got a 2xx answer.",
		},
	)
	deliveryFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_webhook_failures_total",
			Help: "Webhook deliveries that errored or got a non-2xx answer.",
		},
	)
)

func init() {
	prometheus.MustRegister(deliveryOK, deliveryFailed)
}
