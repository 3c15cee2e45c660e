package reqctx

import (
	"context"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Create a new context with the request id
func New(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Extract the request id from the context, empty if not set
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
