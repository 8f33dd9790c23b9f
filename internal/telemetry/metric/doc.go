// Package metric provides Prometheus metrics for websec.
//
//   - prometheus.go: the Registry of counters and histograms and the
//     /metrics handler
//   - collector.go: a pull collector reporting store sizes at scrape time
//
// All series are prefixed websec_. Each Registry owns its own
// prometheus.Registry so that tests and multiple servers never collide on
// the global default.
package metric
