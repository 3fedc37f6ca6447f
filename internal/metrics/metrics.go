// Package metrics holds the Prometheus collectors shared by all services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExamSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_exam_sessions_total",
		Help: "Exam connections by outcome.",
	}, []string{"outcome"})

	ResultObservers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_result_observers",
		Help: "Live result board observers.",
	})

	ChatPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_chat_peers",
		Help: "Registered chat participants.",
	})

	ChatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_chat_messages_total",
		Help: "Chat messages appended to history by kind.",
	}, []string{"kind"})

	ChatDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_chat_slow_peers_dropped_total",
		Help: "Chat peers disconnected because their outbound queue was full.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_notifications_sent_total",
		Help: "Notification datagrams by kind tag.",
	}, []string{"kind"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_notification_failures_total",
		Help: "Datagram sends that failed and dropped their registration.",
	})

	ActiveCountdowns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_active_countdowns",
		Help: "Student countdowns currently armed.",
	})
)
