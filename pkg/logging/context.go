package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	OriginKey      = "origin"
	GatewayIDKey   = "gateway_id"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, contextKey(MessageIDKey), messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

// WithOrigin records the listener origin (e.g. "test", "tcp://broker:1883") a
// message arrived from.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, contextKey(OriginKey), origin)
}

func WithGatewayID(ctx context.Context, gatewayID string) context.Context {
	return context.WithValue(ctx, contextKey(GatewayIDKey), gatewayID)
}

func GetServiceName(ctx context.Context) string {
	return Value(ctx, ServiceNameKey)
}

// Value returns the string stored under one of the *Key constants, or "".
func Value(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

// GetLogFields returns the context values as zap sugared key/value pairs.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []string{TraceIDKey, MessageIDKey, OriginKey, GatewayIDKey, ServiceNameKey} {
		if v := Value(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
