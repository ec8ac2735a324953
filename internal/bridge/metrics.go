package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "bridge",
		Name:      "tasks_delivered_total",
		Help:      "Delivery tasks executed by session dispatchers",
	})

	tasksDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "bridge",
		Name:      "tasks_dropped_total",
		Help:      "Tasks submitted after their dispatcher closed",
	})

	tasksPanicked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "bridge",
		Name:      "tasks_panicked_total",
		Help:      "Delivery tasks that panicked",
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fastllamad",
		Subsystem: "bridge",
		Name:      "queue_depth",
		Help:      "Tasks queued and not yet started, summed over all dispatchers",
	})
)

func init() {
	prometheus.MustRegister(tasksDelivered, tasksDropped, tasksPanicked, queueDepth)
}
