package billing

import "github.com/prometheus/client_golang/prometheus"

var invoicesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "labdesk_invoices_total",
		Help: "Invoice generation attempts by outcome",
	},
	[]string{"outcome"},
)

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{invoicesTotal}
}
