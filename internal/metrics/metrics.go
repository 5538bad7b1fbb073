package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the chat delivery subsystem. A nil *Metrics is valid
// and records nothing, so components can run uninstrumented in tests.
type Metrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	messagesTotal  *prometheus.CounterVec
	deliveries     prometheus.Counter
	sendFailures   prometheus.Counter
	historyPages   prometheus.Counter
	droppedFrames  prometheus.Counter
}

// New registers and returns the messenger metrics set.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "messenger_sessions_active",
			Help: "Current number of live chat sessions.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_sessions_total",
			Help: "Total chat sessions handled since start.",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messenger_messages_total",
			Help: "Messages persisted, by kind.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_deliveries_total",
			Help: "Broadcast frames delivered to streams.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_send_failures_total",
			Help: "Broadcast deliveries that failed on a stream.",
		}),
		historyPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_history_pages_total",
			Help: "History pages served, replay and load-more.",
		}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_dropped_frames_total",
			Help: "Inbound frames dropped as malformed or unknown.",
		}),
	}

	reg.MustRegister(
		m.activeSessions,
		m.sessionsTotal,
		m.messagesTotal,
		m.deliveries,
		m.sendFailures,
		m.historyPages,
		m.droppedFrames,
	)
	return m
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) MessagePersisted(kind string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Delivered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveries.Add(float64(n))
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *Metrics) HistoryPage() {
	if m == nil {
		return
	}
	m.historyPages.Inc()
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.droppedFrames.Inc()
}
