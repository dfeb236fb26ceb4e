package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"mokosmart/internal/api"
	"mokosmart/internal/barnowl"
	"mokosmart/internal/broker"
	"mokosmart/internal/config"
	"mokosmart/internal/constants"
	"mokosmart/internal/decoder"
	"mokosmart/internal/listener"
	"mokosmart/internal/logger"
	"mokosmart/pkg/bootstrap"
	"mokosmart/pkg/cel"
	"mokosmart/pkg/health"
	"mokosmart/pkg/logging"
	"mokosmart/pkg/metrics"
	"mokosmart/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	barnowl        *barnowl.Barnowl
	healthRegistry *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:           bootstrap.NewBase(cfg, log),
		barnowl:        barnowl.New(log),
		healthRegistry: health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDecoderMetrics()
	if a.usesKafka() {
		metrics.RegisterBrokerMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	if a.Config.API.RateLimit.Enabled {
		metrics.RegisterAPIMetrics()
	}

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initFilter(); err != nil {
		return fmt.Errorf("failed to initialize emission filter: %w", err)
	}

	a.initSinks(ctx)
	a.initListeners()

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) usesKafka() bool {
	return a.Config.Emission.Kafka || a.Config.Listeners.Kafka.Enabled
}

func (a *App) decodingOptions() decoder.Options {
	return decoder.Options(a.Config.Decoding.Options)
}

func (a *App) initFilter() error {
	expression := a.Config.Emission.Filter
	if expression == "" {
		return nil
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return err
	}
	filter, err := evaluator.NewFilter(expression)
	if err != nil {
		return err
	}

	a.barnowl.SetFilter(filter)
	a.Logger.Infow("Emission filter installed", "filter", expression)
	return nil
}

func (a *App) initSinks(ctx context.Context) {
	if a.Config.Emission.Log {
		a.barnowl.AddSink(barnowl.NewLogSink(a.Logger))
	}

	if a.Producer != nil {
		a.barnowl.AddSink(broker.NewKafkaSink(a.Producer, a.Config.Kafka.RaddecTopic, a.Config.Kafka.InfrastructureTopic))
	}

	if !a.Config.Emission.Log && a.Producer == nil {
		a.Logger.WarnwCtx(logging.WithServiceName(ctx, constants.ServiceName),
			"No sinks enabled, decoded raddecs will be discarded")
	}
}

func (a *App) initListeners() {
	opts := a.decodingOptions()

	if a.Config.Listeners.MQTT.Enabled {
		mqttListener := listener.NewMQTTListener(a.Config.MQTT, opts, a.Logger)
		a.barnowl.AddListener(mqttListener)
		a.healthRegistry.Register(health.Degraded(health.NewMQTTChecker(mqttListener.Client())))
	}

	if a.Config.Listeners.Test.Enabled {
		a.barnowl.AddListener(listener.NewTestListener(a.Config.Listeners.Test.MessagePeriod, opts, a.Logger))
	}

	if a.Consumer != nil {
		a.barnowl.AddListener(listener.NewKafkaListener(a.Consumer, a.Config.Listeners.Kafka.Topic, opts, a.Logger))
	}

	if a.usesKafka() {
		a.healthRegistry.Register(health.NewKafkaChecker(a.Config.Kafka.Brokers))
	}

	if kp, ok := a.Producer.(*broker.KafkaProducer); ok && kp.CircuitBreaker() != nil {
		a.healthRegistry.Register(health.Degraded(health.NewCircuitBreakerChecker(kp.CircuitBreaker())))
	}
}

func (a *App) initHTTPServer(ctx context.Context) error {
	handler := api.NewHandler(a.decodingOptions(), a.Logger)
	router := api.NewRouter(ctx, a.Config, a.Logger, a.healthRegistry, handler)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	return nil
}

// Run serves HTTP and runs the listeners until ctx is done or either fails.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.barnowl.Run(gCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down MOKOSmart bridge")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.tracerProvider.Shutdown(flushCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
