package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one request across logs, audit rows and responses.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext fills whichever ids the caller did not propagate.
func NewTraceContext(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

// WithTrace stores t in ctx.
func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}

// GetTrace returns the request's trace ids, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return t
}
