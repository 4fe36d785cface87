package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

// StatusCounter reports how many live sessions are in each status.
type StatusCounter interface {
	CountByStatus() map[domain.Status]int
}

// Collector reports live sessions by status at scrape time.
type Collector struct {
	source StatusCounter
	desc   *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source StatusCounter) *Collector {
	return &Collector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sessions"),
			"Live tenant sessions by status",
			[]string{"status"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
//
// Every status except NOT_INITIALIZED is reported, zero included, so series
// do not disappear when the last session leaves a status.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counts := c.source.CountByStatus()
	for _, st := range domain.AllStatuses() {
		if st == domain.StatusNotInitialized {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts[st]), string(st))
	}
}

// RegisterCollector registers a session status collector on r.
func (r *Registry) RegisterCollector(source StatusCounter) error {
	return r.registry.Register(NewCollector(source))
}
