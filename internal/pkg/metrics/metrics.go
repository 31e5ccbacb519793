package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LoginAttempts counts login attempts by result: success, invalid, locked, inactive.
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "login_attempts_total",
		Help:      "Login attempts grouped by result.",
	}, []string{"result"})

	CSRFRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "csrf_rejections_total",
		Help:      "Requests rejected for a missing, expired or reused CSRF token.",
	}, []string{"purpose"})

	// CartOperations counts cart mutations by operation, storage mode (guest/user) and outcome.
	CartOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "cart_operations_total",
		Help:      "Cart operations grouped by operation, mode and result.",
	}, []string{"op", "mode", "result"})

	SessionsRegenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "sessions_regenerated_total",
		Help:      "Session identifiers rotated on login or on the regeneration interval.",
	})

	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketplace",
		Name:      "websocket_clients",
		Help:      "Connected cart event websocket clients.",
	})
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LoginAttempts,
			CSRFRejections,
			CartOperations,
			SessionsRegenerated,
			WebsocketClients,
		)
	})
}
