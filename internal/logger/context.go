package logger

import "context"

type ctxKey int

const requestIDCtxKey ctxKey = iota

// WithRequestID stores the request ID in the context for downstream
// log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// RequestID returns the request ID stored in the context, or "" when
// the request carried none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}
