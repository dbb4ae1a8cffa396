package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_api_requests_total",
			Help: "Total number of REST requests issued by the inbox engine.",
		},
		[]string{"operation", "result"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_api_request_duration_seconds",
			Help:    "REST request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_sends_total",
			Help: "Total number of optimistic sends by outcome.",
		},
		[]string{"result"},
	)
	mergesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_store_merges_total",
			Help: "Total number of message merges applied to the store.",
		},
	)
	pushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_push_events_total",
			Help: "Total number of realtime push events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	staleLoadsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_stale_loads_dropped_total",
			Help: "Message page loads discarded because the active conversation changed.",
		},
	)
	undosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_undos_total",
			Help: "Undo affordance outcomes for soft-deleted messages.",
		},
		[]string{"outcome"},
	)
	pendingUndos = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_pending_undos",
			Help: "Soft-deleted messages still inside their undo grace window.",
		},
	)
	messagesHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_messages_held",
			Help: "Messages currently held for the open conversation.",
		},
	)
	conversationsHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_conversations_held",
			Help: "Conversation rows currently held, before deduplication.",
		},
	)
	wsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_ws_connected",
			Help: "Whether the realtime event source is currently connected.",
		},
	)
	wsFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_ws_frames_total",
			Help: "Total number of websocket frames by disposition.",
		},
		[]string{"disposition"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		sendsTotal,
		mergesTotal,
		pushEventsTotal,
		staleLoadsDropped,
		undosTotal,
		pendingUndos,
		messagesHeld,
		conversationsHeld,
		wsConnected,
		wsFramesTotal,
	)
}

func ObserveAPIRequest(operation, result string, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(operation, result).Inc()
	apiRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func IncSend(result string) {
	sendsTotal.WithLabelValues(result).Inc()
}

func IncMerge() {
	mergesTotal.Inc()
}

func IncPushEvent(kind, outcome string) {
	pushEventsTotal.WithLabelValues(kind, outcome).Inc()
}

func IncStaleLoadDropped() {
	staleLoadsDropped.Inc()
}

func IncUndo(outcome string) {
	undosTotal.WithLabelValues(outcome).Inc()
}

func SetPendingUndos(n int) {
	pendingUndos.Set(float64(n))
}

func SetMessagesHeld(n int) {
	messagesHeld.Set(float64(n))
}

func SetConversationsHeld(n int) {
	conversationsHeld.Set(float64(n))
}

func SetWSConnected(connected bool) {
	if connected {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}

func IncWSFrame(disposition string) {
	wsFramesTotal.WithLabelValues(disposition).Inc()
}
