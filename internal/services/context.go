package services

import "context"

type contextKey string

const (
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
	ordinalKey   contextKey = "ordinal"
)

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithRequestID annotates context with the mashup request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the mashup request identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// WithOrdinal scopes context to one ranked track. Negative ordinals are ignored.
func WithOrdinal(ctx context.Context, ordinal int) context.Context {
	if ordinal < 0 {
		return ctx
	}
	return context.WithValue(ctx, ordinalKey, ordinal)
}

// OrdinalFromContext returns the ranked-track position carried by ctx.
func OrdinalFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ordinalKey).(int)
	return v, ok
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
