package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const decoderTracerName = "mokosmart-decoder"

// StartDecodeSpan opens the span covering decoding and emission of one
// gateway message.
func StartDecodeSpan(ctx context.Context, origin string) (context.Context, trace.Span) {
	return GetTracer(decoderTracerName).Start(ctx, "gateway.decode",
		trace.WithAttributes(attribute.String("mokosmart.origin", origin)),
	)
}

// EndDecodeSpan records the outcome and ends span.
func EndDecodeSpan(span trace.Span, msgType string, raddecs, infrastructureMessages, skipped int, rejection error) {
	span.SetAttributes(
		attribute.String("mokosmart.msg_type", msgType),
		attribute.Int("mokosmart.raddecs", raddecs),
		attribute.Int("mokosmart.infrastructure_messages", infrastructureMessages),
		attribute.Int("mokosmart.skipped_reports", skipped),
	)
	if rejection != nil {
		span.SetStatus(codes.Error, rejection.Error())
	}
	span.End()
}
