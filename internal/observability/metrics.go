package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded by the inbound pump.
const (
	DropMalformed = "malformed"
	DropLoopback  = "loopback"
	DropReceive   = "receive_error"
)

// TypeUnknown labels every packet type without a built-in tag. Wire ids
// are peer controlled and must not mint series.
const TypeUnknown = "unknown"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"robot", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "swarmctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"robot", "method", "path", "status"},
	)
	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "packets",
			Name:      "sent_total",
			Help:      "Outbound packets handed to the transport.",
		},
		[]string{"robot", "type", "success"},
	)
	packetsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "packets",
			Name:      "received_total",
			Help:      "Inbound packets dispatched to a handler.",
		},
		[]string{"robot", "type"},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "packets",
			Name:      "dropped_total",
			Help:      "Inbound packets dropped before dispatch.",
		},
		[]string{"robot", "reason"},
	)
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "dispatch",
			Name:      "handler_errors_total",
			Help:      "Dispatch handler failures by packet type.",
		},
		[]string{"robot", "type"},
	)
	barrierCrossings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "barrier",
			Name:      "crossings_total",
			Help:      "Barrier rounds observed as crossed.",
		},
		[]string{"robot"},
	)
	transportDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swarmctl",
			Subsystem: "transport",
			Name:      "dropped_total",
			Help:      "Messages discarded by a transport backend because a queue was full.",
		},
		[]string{"backend"},
	)
	neighborCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "swarmctl",
			Subsystem: "store",
			Name:      "neighbors",
			Help:      "Entries currently held in the neighbor table.",
		},
		[]string{"robot"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			packetsSent,
			packetsReceived,
			packetsDropped,
			handlerErrors,
			barrierCrossings,
			transportDropped,
			neighborCount,
		)
	})
}

func RecordHTTPRequest(robot, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(robot, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(robot, method, path, statusLabel).Observe(duration.Seconds())
}

func typeLabel(packetType string) string {
	if schema.IsBuiltinTag(packetType) {
		return packetType
	}
	return TypeUnknown
}

func RecordPacketSent(robot int, packetType string, success bool) {
	RegisterMetrics()
	packetsSent.WithLabelValues(strconv.Itoa(robot), typeLabel(packetType), strconv.FormatBool(success)).Inc()
}

func RecordPacketReceived(robot int, packetType string) {
	RegisterMetrics()
	packetsReceived.WithLabelValues(strconv.Itoa(robot), typeLabel(packetType)).Inc()
}

func RecordPacketDropped(robot int, reason string) {
	RegisterMetrics()
	packetsDropped.WithLabelValues(strconv.Itoa(robot), reason).Inc()
}

func RecordHandlerError(robot int, packetType string) {
	RegisterMetrics()
	handlerErrors.WithLabelValues(strconv.Itoa(robot), typeLabel(packetType)).Inc()
}

func RecordBarrierCrossing(robot int) {
	RegisterMetrics()
	barrierCrossings.WithLabelValues(strconv.Itoa(robot)).Inc()
}

func SetNeighborCount(robot int, n int) {
	RegisterMetrics()
	neighborCount.WithLabelValues(strconv.Itoa(robot)).Set(float64(n))
}

func RecordTransportDrop(backend string) {
	RegisterMetrics()
	transportDropped.WithLabelValues(backend).Inc()
}
