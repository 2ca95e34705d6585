package tool

import (
	"github.com/cws-dev/cwstools/internal/common"
	"github.com/cws-dev/cwstools/pkg/simlog"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "cws_log"

// writeSummaryMetrics writes the summary as gauges to a node exporter style
// textfile.
func writeSummaryMetrics(path string, s simlog.Summary) error {
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "records",
		Help:      "Number of records per log section.",
	}, []string{"section"})
	tasks := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "tasks",
		Help:      "Number of tasks per outcome.",
	}, []string{"outcome"})
	makespan := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "makespan_seconds",
		Help:      "Time from the first VM start to the last VM or task finish.",
	})
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "vm_cost",
		Help:      "VM cost with every started hour billed.",
	})

	for _, section := range simlog.Sections {
		records.WithLabelValues(section.String()).Set(float64(s.Records[section]))
	}

	for _, outcome := range simlog.Outcomes {
		tasks.WithLabelValues(outcome.String()).Set(float64(s.Outcomes[outcome]))
	}

	makespan.Set(common.SanitizeFloat(s.Makespan))
	cost.Set(common.SanitizeFloat(s.VMCost))

	registry := prometheus.NewRegistry()
	registry.MustRegister(records, tasks, makespan, cost)

	return prometheus.WriteToTextfile(path, registry)
}
