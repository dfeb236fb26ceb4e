package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult)
	allHealthy := true
	anyDegraded := false

	for _, checker := range r.checkers {
		err := checker.Check(ctx)
		result := CheckResult{
			Timestamp: time.Now(),
		}

		var degraded *degradedError
		switch {
		case err == nil:
			result.Status = StatusHealthy
		case errors.As(err, &degraded):
			result.Status = StatusDegraded
			result.Message = err.Error()
			anyDegraded = true
		default:
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			allHealthy = false
		}

		results[checker.Name()] = result
	}

	overallStatus := StatusHealthy
	if !allHealthy {
		overallStatus = StatusUnhealthy
	} else if anyDegraded {
		overallStatus = StatusDegraded
	}

	return Health{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

type degradedError struct {
	err error
}

func (e *degradedError) Error() string { return e.err.Error() }
func (e *degradedError) Unwrap() error { return e.err }

type degradedChecker struct {
	Checker
}

// Degraded reports failures of c as degraded rather than unhealthy, for
// dependencies that recover on their own.
func Degraded(c Checker) Checker {
	return degradedChecker{Checker: c}
}

func (c degradedChecker) Check(ctx context.Context) error {
	if err := c.Checker.Check(ctx); err != nil {
		return &degradedError{err: err}
	}
	return nil
}

// ConnectionState is implemented by clients that track their own connection,
// such as paho's mqtt.Client.
type ConnectionState interface {
	IsConnectionOpen() bool
}

type MQTTChecker struct {
	client ConnectionState
}

func NewMQTTChecker(client ConnectionState) *MQTTChecker {
	return &MQTTChecker{client: client}
}

func (c *MQTTChecker) Name() string {
	return "mqtt"
}

func (c *MQTTChecker) Check(ctx context.Context) error {
	if c.client == nil || !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt broker connection is not open")
	}
	return nil
}

// Breaker is implemented by circuitbreaker.Wrapper.
type Breaker interface {
	Name() string
	IsOpen() bool
}

type CircuitBreakerChecker struct {
	breaker Breaker
}

func NewCircuitBreakerChecker(b Breaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{breaker: b}
}

func (c *CircuitBreakerChecker) Name() string {
	return "circuit_breaker:" + c.breaker.Name()
}

func (c *CircuitBreakerChecker) Check(ctx context.Context) error {
	if c.breaker.IsOpen() {
		return fmt.Errorf("circuit breaker %s is open", c.breaker.Name())
	}
	return nil
}

type KafkaChecker struct {
	brokers []string
	dialer  *kafka.Dialer
}

func NewKafkaChecker(brokers []string) *KafkaChecker {
	return &KafkaChecker{
		brokers: brokers,
		dialer:  &kafka.Dialer{Timeout: checkTimeout},
	}
}

func (c *KafkaChecker) Name() string {
	return "kafka"
}

// Check succeeds when any configured broker accepts a connection.
func (c *KafkaChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var lastErr error
	for _, broker := range c.brokers {
		conn, err := c.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = &net.AddrError{Err: "no brokers configured"}
	}
	return fmt.Errorf("kafka dial failed: %w", lastErr)
}
