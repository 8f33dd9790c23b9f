package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sizer reports how many entries a store holds.
type Sizer interface {
	Count(ctx context.Context) (int, error)
}

// Collector reports store sizes at scrape time instead of tracking them
// with gauges on every write.
type Collector struct {
	sessions    Sizer
	credentials Sizer
	timeout     time.Duration

	sessionsDesc    *prometheus.Desc
	credentialsDesc *prometheus.Desc
	errorsDesc      *prometheus.Desc
}

// NewCollector creates a collector over the session and credential stores.
// Either may be nil.
func NewCollector(sessions, credentials Sizer) *Collector {
	return &Collector{
		sessions:    sessions,
		credentials: credentials,
		timeout:     2 * time.Second,
		sessionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "active"),
			"Sessions currently stored.", nil, nil),
		credentialsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "credential", "stored"),
			"Registered credentials.", nil, nil),
		errorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "collector", "errors"),
			"Store size queries that failed during the last scrape.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsDesc
	ch <- c.credentialsDesc
	ch <- c.errorsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	failed := 0
	emit := func(s Sizer, desc *prometheus.Desc) {
		if s == nil {
			return
		}
		n, err := s.Count(ctx)
		if err != nil {
			failed++
			return
		}
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(n))
	}
	emit(c.sessions, c.sessionsDesc)
	emit(c.credentials, c.credentialsDesc)
	ch <- prometheus.MustNewConstMetric(c.errorsDesc, prometheus.GaugeValue, float64(failed))
}
