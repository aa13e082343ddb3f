package metrics

import (
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const Namespace = "dynfile_"

var (
	start  = time.Now()
	uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "uptime",
		Help: "Total running time in seconds.",
	}, func() float64 {
		return time.Since(start).Seconds()
	})
)

// InitMetricRegistry returns the registry to serve and a registerer that prefixes
// every metric with dynfile_ and labels it with the instance name.
func InitMetricRegistry(instance string) (*prometheus.Registry, prometheus.Registerer) {
	registry := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWithPrefix(
		Namespace,
		prometheus.WrapRegistererWith(prometheus.Labels{"instance": instance}, registry))

	registerer.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registerer.MustRegister(collectors.NewGoCollector())
	return registry, registerer
}

func RegistMetrics(registerer prometheus.Registerer) {
	if registerer == nil {
		return
	}
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build information, always 1.",
		ConstLabels: prometheus.Labels{
			"version":    types.GO_DYNFILE_VERSION,
			"commit":     types.COMMIT_ID,
			"go_version": types.GO_VERSION,
		},
	})
	buildInfo.Set(1)

	registerer.MustRegister(uptime)
	registerer.MustRegister(buildInfo)
}
