package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"transbuddy/internal/domain"
)

// StatusSource exposes the live session status.
type StatusSource interface {
	Status() domain.Status
}

// Collector reports the session state at scrape time.
type Collector struct {
	source StatusSource
	active *prometheus.Desc
}

func NewCollector(source StatusSource) *Collector {
	return &Collector{
		source: source,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "session_active"),
			"1 while a dictation session is in progress.",
			[]string{"state"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	status := domain.Status{State: domain.SessionStateIdle}
	if c.source != nil {
		status = c.source.Status()
	}
	value := 0.0
	if status.Active {
		value = 1
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, value, string(status.State))
}
