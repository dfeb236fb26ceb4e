package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusDecoded   = "decoded"
	StatusRejected  = "rejected"
	StatusMalformed = "malformed"
)

var (
	GatewayMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_messages_total",
			Help: "Total number of gateway messages received, by origin, msg type and outcome (count)",
		},
		[]string{"origin", "msg_type", "status"},
	)

	DecodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decode_duration_ms",
			Help:    "Duration of decoding and emitting one gateway message in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"msg_type"},
	)

	SkippedReportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skipped_reports_total",
			Help: "Total number of scan reports skipped as malformed (count)",
		},
	)

	RaddecsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raddecs_emitted_total",
			Help: "Total number of raddecs handed to a sink (count)",
		},
		[]string{"sink"},
	)

	RaddecsFilteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raddecs_filtered_total",
			Help: "Total number of raddecs dropped by the emission filter (count)",
		},
	)

	InfrastructureMessagesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrastructure_messages_emitted_total",
			Help: "Total number of infrastructure messages handed to a sink (count)",
		},
		[]string{"sink"},
	)

	SinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_errors_total",
			Help: "Total number of failed sink deliveries (count)",
		},
		[]string{"sink", "kind"},
	)

	ListenerConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listener_connected",
			Help: "Whether a listener is connected to its source (0 or 1)",
		},
		[]string{"listener"},
	)

	MQTTConnectionLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mqtt_connection_lost_total",
			Help: "Total number of lost MQTT broker connections (count)",
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)
)

var (
	decoderOnce        sync.Once
	brokerOnce         sync.Once
	circuitBreakerOnce sync.Once
	apiOnce            sync.Once
)

func RegisterDecoderMetrics() {
	decoderOnce.Do(func() {
		prometheus.MustRegister(GatewayMessagesTotal)
		prometheus.MustRegister(DecodeDuration)
		prometheus.MustRegister(SkippedReportsTotal)
		prometheus.MustRegister(RaddecsEmittedTotal)
		prometheus.MustRegister(RaddecsFilteredTotal)
		prometheus.MustRegister(InfrastructureMessagesEmittedTotal)
		prometheus.MustRegister(SinkErrorsTotal)
		prometheus.MustRegister(ListenerConnected)
		prometheus.MustRegister(MQTTConnectionLostTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(KafkaMessagesReadTotal)
		prometheus.MustRegister(KafkaMessagesWrittenTotal)
		prometheus.MustRegister(KafkaMessageSizeBytes)
		prometheus.MustRegister(KafkaReadDuration)
		prometheus.MustRegister(KafkaWriteDuration)
	})
}

func RegisterCircuitBreakerMetrics() {
	circuitBreakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterAPIMetrics() {
	apiOnce.Do(func() {
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func IncGatewayMessage(origin, msgType, status string) {
	GatewayMessagesTotal.WithLabelValues(origin, msgType, status).Inc()
}

func ObserveDecodeDuration(msgType string, duration time.Duration) {
	DecodeDuration.WithLabelValues(msgType).Observe(float64(duration.Microseconds()) / 1000)
}

func AddSkippedReports(n int) {
	if n > 0 {
		SkippedReportsTotal.Add(float64(n))
	}
}

func IncRaddecEmitted(sink string) {
	RaddecsEmittedTotal.WithLabelValues(sink).Inc()
}

func IncInfrastructureMessageEmitted(sink string) {
	InfrastructureMessagesEmittedTotal.WithLabelValues(sink).Inc()
}

func IncSinkError(sink, kind string) {
	SinkErrorsTotal.WithLabelValues(sink, kind).Inc()
}

func SetListenerConnected(listener string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	ListenerConnected.WithLabelValues(listener).Set(v)
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}
