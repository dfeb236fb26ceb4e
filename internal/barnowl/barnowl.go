// Package barnowl connects gateway listeners to raddec sinks. Every message a
// listener delivers is decoded and its raddecs and infrastructure messages are
// handed to each registered sink in turn.
package barnowl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mokosmart/internal/decoder"
	"mokosmart/internal/listener"
	"mokosmart/internal/logger"
	"mokosmart/pkg/cel"
	"mokosmart/pkg/logging"
	"mokosmart/pkg/metrics"
	"mokosmart/pkg/raddec"
	"mokosmart/pkg/tracing"
)

const (
	sinkErrorRaddec         = "raddec"
	sinkErrorInfrastructure = "infrastructure_message"
)

var ErrNoListeners = errors.New("no listeners configured")

type Barnowl struct {
	logger logger.Logger

	mu        sync.RWMutex
	listeners []listener.Listener
	sinks     []Sink
	filter    *cel.Filter
}

func New(log logger.Logger) *Barnowl {
	return &Barnowl{logger: log}
}

func (b *Barnowl) AddListener(l listener.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Barnowl) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// SetFilter installs an emission filter for raddecs. A nil filter emits all.
func (b *Barnowl) SetFilter(f *cel.Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
}

// Run runs every listener until ctx is done. The first listener to fail
// cancels the others.
func (b *Barnowl) Run(ctx context.Context) error {
	b.mu.RLock()
	listeners := append([]listener.Listener(nil), b.listeners...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		return ErrNoListeners
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		l := l
		g.Go(func() error {
			b.logger.Infow("Starting listener", "listener", l.Name())
			if err := l.Run(gCtx, b); err != nil {
				return fmt.Errorf("listener %s: %w", l.Name(), err)
			}
			b.logger.Infow("Listener stopped", "listener", l.Name())
			return nil
		})
	}
	return g.Wait()
}

// HandleData decodes one gateway message and emits the result.
func (b *Barnowl) HandleData(ctx context.Context, msg map[string]interface{}, origin string, captureTime time.Time, opts decoder.Options) {
	ctx, span := tracing.StartDecodeSpan(ctx, origin)
	ctx = tracing.WithLogTraceID(ctx, span)

	start := time.Now()
	result := decoder.Decode(msg, origin, captureTime, opts)
	msgType := result.Type.String()
	metrics.ObserveDecodeDuration(msgType, time.Since(start))

	if result.GatewayID != "" {
		ctx = logging.WithGatewayID(ctx, result.GatewayID)
	}

	if result.Rejection != nil {
		metrics.IncGatewayMessage(origin, msgType, metrics.StatusRejected)
		b.logger.DebugwCtx(ctx, "Gateway message rejected", "reason", result.Rejection.Error())
		tracing.EndDecodeSpan(span, msgType, 0, 0, 0, result.Rejection)
		return
	}

	metrics.IncGatewayMessage(origin, msgType, metrics.StatusDecoded)
	if result.SkippedReports > 0 {
		metrics.AddSkippedReports(result.SkippedReports)
		b.logger.DebugwCtx(ctx, "Skipped invalid reports", "skipped", result.SkippedReports)
	}

	emitted := b.Emit(ctx, result)

	tracing.EndDecodeSpan(span, msgType, emitted, len(result.InfrastructureMessages), result.SkippedReports, nil)
}

// Emit hands a decode result to the sinks and returns the number of raddecs
// that passed the filter.
func (b *Barnowl) Emit(ctx context.Context, result decoder.Result) int {
	b.mu.RLock()
	sinks := b.sinks
	filter := b.filter
	b.mu.RUnlock()

	emitted := 0
	for _, r := range result.Raddecs {
		if !b.accept(ctx, filter, r) {
			metrics.RaddecsFilteredTotal.Inc()
			continue
		}
		emitted++
		b.handleRaddec(ctx, sinks, r)
	}
	for _, m := range result.InfrastructureMessages {
		b.handleInfrastructureMessage(ctx, sinks, m)
	}
	return emitted
}

// accept drops raddecs the filter cannot evaluate.
func (b *Barnowl) accept(ctx context.Context, filter *cel.Filter, r *raddec.Raddec) bool {
	if filter == nil {
		return true
	}
	ok, err := filter.Match(ctx, r)
	if err != nil {
		b.logger.WarnwCtx(ctx, "Emission filter failed, dropping raddec",
			"transmitter_id", r.TransmitterID,
			"filter", filter.Expression(),
			"error", err,
		)
		return false
	}
	return ok
}

func (b *Barnowl) handleRaddec(ctx context.Context, sinks []Sink, r *raddec.Raddec) {
	for _, s := range sinks {
		if err := s.HandleRaddec(ctx, r); err != nil {
			metrics.IncSinkError(s.Name(), sinkErrorRaddec)
			b.logger.ErrorwCtx(ctx, "Sink failed to handle raddec",
				"sink", s.Name(),
				"transmitter_id", r.TransmitterID,
				"error", err,
			)
			continue
		}
		metrics.IncRaddecEmitted(s.Name())
	}
}

func (b *Barnowl) handleInfrastructureMessage(ctx context.Context, sinks []Sink, m *raddec.InfrastructureMessage) {
	for _, s := range sinks {
		if err := s.HandleInfrastructureMessage(ctx, m); err != nil {
			metrics.IncSinkError(s.Name(), sinkErrorInfrastructure)
			b.logger.ErrorwCtx(ctx, "Sink failed to handle infrastructure message",
				"sink", s.Name(),
				"device_id", m.DeviceID,
				"error", err,
			)
			continue
		}
		metrics.IncInfrastructureMessageEmitted(s.Name())
	}
}
