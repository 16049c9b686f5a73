package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsSubsystem = "http"

// PrometheusCollector exposes the window statistics of a Collector as
// Prometheus metrics. Values are computed at scrape time.
type PrometheusCollector struct {
	source *Collector

	windowRequests *prometheus.Desc
	avgLatency     *prometheus.Desc
	p95Latency     *prometheus.Desc
	slowRequests   *prometheus.Desc
	errorRate      *prometheus.Desc
	recordedTotal  *prometheus.Desc
	evictedTotal   *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a collector reading from source.
func NewPrometheusCollector(source *Collector, namespace string) *PrometheusCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, metricsSubsystem, name), help, nil, nil)
	}

	return &PrometheusCollector{
		source:         source,
		windowRequests: desc("window_requests", "Requests currently retained in the metrics window"),
		avgLatency:     desc("response_time_avg_ms", "Average response time over the window in milliseconds"),
		p95Latency:     desc("response_time_p95_ms", "Nearest-rank p95 response time over the window in milliseconds"),
		slowRequests:   desc("slow_requests", "Requests in the window slower than the slow threshold"),
		errorRate:      desc("error_rate_percent", "Percentage of requests in the window with status >= 400"),
		recordedTotal:  desc("recorded_requests_total", "Requests recorded since process start"),
		evictedTotal:   desc("evicted_samples_total", "Samples evicted from the window since process start"),
	}
}

// Describe implements prometheus.Collector.
func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.windowRequests
	ch <- p.avgLatency
	ch <- p.p95Latency
	ch <- p.slowRequests
	ch <- p.errorRate
	ch <- p.recordedTotal
	ch <- p.evictedTotal
}

// Collect implements prometheus.Collector.
func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	summary := p.source.Summary()
	recorded, evicted := p.source.Counters()

	ch <- prometheus.MustNewConstMetric(p.windowRequests, prometheus.GaugeValue, float64(summary.TotalRequests))
	ch <- prometheus.MustNewConstMetric(p.avgLatency, prometheus.GaugeValue, float64(summary.AvgResponseTime))
	ch <- prometheus.MustNewConstMetric(p.p95Latency, prometheus.GaugeValue, float64(summary.P95ResponseTime))
	ch <- prometheus.MustNewConstMetric(p.slowRequests, prometheus.GaugeValue, float64(summary.SlowRequests))
	ch <- prometheus.MustNewConstMetric(p.errorRate, prometheus.GaugeValue, summary.ErrorRate)
	ch <- prometheus.MustNewConstMetric(p.recordedTotal, prometheus.CounterValue, float64(recorded))
	ch <- prometheus.MustNewConstMetric(p.evictedTotal, prometheus.CounterValue, float64(evicted))
}

// NewRegistry returns a registry holding the window collector plus the
// standard Go runtime and process collectors.
func NewRegistry(source *Collector, namespace string) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	registered := []prometheus.Collector{
		NewPrometheusCollector(source, namespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, collector := range registered {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
