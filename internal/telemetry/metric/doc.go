// Package metric provides Prometheus metrics for PairHub.
//
//   - prometheus.go: the Registry with session, broadcast and HTTP metrics
//   - collector.go: a scrape-time collector of live sessions by status
//
// Registry methods are safe on a nil *Registry, so components can run
// without metrics in tests.
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
