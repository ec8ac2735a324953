package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "opened_total",
		Help:      "Sessions opened since start",
	})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "active",
		Help:      "Currently open sessions",
	})

	sessionRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "rejections_total",
		Help:      "Sessions refused because the session limit was reached",
	})

	contextsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "contexts_open",
		Help:      "Engine contexts with a loaded model",
	})

	modelLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "model_loads_total",
		Help:      "Model loads by result",
	}, []string{"result"})

	modelLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "model_load_duration_seconds",
		Help:      "Time to create a context and load its model",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "generations_total",
		Help:      "Answered user messages by result",
	}, []string{"result"})

	generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "generation_duration_seconds",
		Help:      "Duration of generate calls",
		Buckets:   prometheus.DefBuckets,
	})

	tokensStreamed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "tokens_streamed_total",
		Help:      "Token chunks appended to model messages",
	})

	nativeLogs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "engine",
		Name:      "log_events_total",
		Help:      "Engine log callbacks by level",
	}, []string{"level"})

	busyRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "busy_rejections_total",
		Help:      "Requests rejected because the engine slot was held",
	})

	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "commands_total",
		Help:      "Control commands by name and result",
	}, []string{"command", "result"})

	persistOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "persistence_ops_total",
		Help:      "Saved-session operations by kind and result",
	}, []string{"op", "result"})

	inboundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "inbound_total",
		Help:      "Decoded inbound records by type",
	}, []string{"type"})

	inboundRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "inbound_rejected_total",
		Help:      "Inbound records rejected before reaching the engine",
	}, []string{"reason"})

	transportFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastllamad",
		Subsystem: "session",
		Name:      "transport_failures_total",
		Help:      "Outbound records dropped because the transport failed",
	})
)

func init() {
	prometheus.MustRegister(
		sessionsOpened, sessionsActive, sessionRejections,
		contextsOpen, modelLoads, modelLoadDuration,
		generations, generationDuration, tokensStreamed, nativeLogs,
		busyRejections, commandsTotal, persistOps,
		inboundTotal, inboundRejected, transportFailures,
	)
}
