package sched

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's Prometheus instruments.
type Metrics struct {
	Dispatches       prometheus.Counter
	Preemptions      prometheus.Counter
	Wakeups          prometheus.Counter
	Blocks           prometheus.Counter
	Finished         prometheus.Counter
	ClockRegressions prometheus.Counter
	DroppedEvents    prometheus.Counter

	QueueDepth  prometheus.Gauge
	TotalWeight prometheus.Gauge
}

// NewMetrics builds the instrument set and registers it on reg. A nil reg
// leaves the instruments unregistered but fully usable, which is what tests
// and embedders that never scrape want. Pass a dedicated registry per
// scheduler instance; MustRegister panics on duplicates.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_dispatches_total",
			Help: "Tasks dispatched to run.",
		}),
		Preemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_preemptions_total",
			Help: "Running tasks displaced by an earlier eligible deadline.",
		}),
		Wakeups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_wakeups_total",
			Help: "Blocked tasks returned to the runqueue.",
		}),
		Blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_blocks_total",
			Help: "Running tasks that went to sleep.",
		}),
		Finished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_finished_total",
			Help: "Tasks terminated.",
		}),
		ClockRegressions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_clock_regressions_total",
			Help: "Ticks rejected because the clock did not advance.",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fairq_dropped_events_total",
			Help: "Status events dropped on a full channel.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fairq_queue_depth",
			Help: "Runnable tasks, the running one included.",
		}),
		TotalWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fairq_total_weight",
			Help: "Combined weight of the competition.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Dispatches, m.Preemptions, m.Wakeups, m.Blocks, m.Finished,
			m.ClockRegressions, m.DroppedEvents, m.QueueDepth, m.TotalWeight,
		)
	}
	return m
}
