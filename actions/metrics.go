package actions

import (
	"sync"

	"sciviz_playground/internal/realtime"

	"github.com/gobuffalo/buffalo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry     = prometheus.NewRegistry()
	registerOnce sync.Once

	actionsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sandbox",
		Name:      "actions_applied_total",
		Help:      "Actions applied to a world, by transport.",
	}, []string{"source"})
)

func registerMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			realtime.Manager.Collector(),
			actionsApplied,
		)
	})
}

func metricsHandler() buffalo.Handler {
	return buffalo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
