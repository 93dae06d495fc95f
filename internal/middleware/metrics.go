package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "homeroom_redis_errors_total",
	Help: "Number of Redis command errors by command.",
}, []string{"command"})

// WSConnections tracks currently connected chat websocket clients.
var WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "homeroom_ws_connections",
	Help: "Open chat websocket connections.",
})

// ChatMessagesSent counts accepted chat messages by type.
var ChatMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "homeroom_chat_messages_sent_total",
	Help: "Chat messages accepted by the message store, by type.",
}, []string{"type"})

// InitMetrics creates the fiberprometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wraps the fiberprometheus middleware as a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
