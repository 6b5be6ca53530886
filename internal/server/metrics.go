package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/model"
)

const metricNamespace = "cpumon"

func newRegistry(c *cache.Cache, counts Counts) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, f func(model.Snapshot) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return f(c.Latest()) })
	}
	reg.MustRegister(
		gauge("cpu_usage_percent", "CPU usage reported by the latest snapshot.",
			func(s model.Snapshot) float64 { return s.CPUUsage }),
		gauge("cpu_temperature_celsius", "CPU temperature reported by the latest snapshot.",
			func(s model.Snapshot) float64 { return s.TemperatureC }),
		gauge("memory_usage_percent", "Memory usage reported by the latest snapshot.",
			func(s model.Snapshot) float64 { return s.MemoryUsage }),
		gauge("disk_usage_percent", "Root volume usage reported by the latest snapshot.",
			func(s model.Snapshot) float64 { return s.DiskUsage }),
		gauge("cpu_frequency_mhz", "CPU clock reported by the latest snapshot, 0 when unknown.",
			func(s model.Snapshot) float64 { return s.FrequencyMHz }),
		gauge("snapshot_timestamp_seconds", "Producer timestamp of the latest snapshot.",
			func(s model.Snapshot) float64 { return s.Timestamp }),
		&perCoreCollector{cache: c, desc: prometheus.NewDesc(
			prometheus.BuildFQName(metricNamespace, "", "core_usage_percent"),
			"Per-core CPU usage reported by the latest snapshot.",
			[]string{"core"}, nil,
		)},
	)

	if counts != nil {
		reg.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "messages_accepted_total",
				Help:      "Inbound snapshot messages stored in the cache.",
			}, func() float64 { a, _ := counts(); return float64(a) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "messages_rejected_total",
				Help:      "Inbound messages discarded as malformed.",
			}, func() float64 { _, r := counts(); return float64(r) }),
		)
	}
	return reg
}

// perCoreCollector emits one gauge per core present in the latest snapshot.
type perCoreCollector struct {
	cache *cache.Cache
	desc  *prometheus.Desc
}

func (p *perCoreCollector) Describe(ch chan<- *prometheus.Desc) { ch <- p.desc }

func (p *perCoreCollector) Collect(ch chan<- prometheus.Metric) {
	for i, v := range p.cache.Latest().PerCore {
		ch <- prometheus.MustNewConstMetric(p.desc, prometheus.GaugeValue, v, strconv.Itoa(i))
	}
}
