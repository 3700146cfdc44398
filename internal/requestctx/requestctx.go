package requestctx

import "context"

type ctxKey struct{ name string }

var (
	requestIDKey = ctxKey{"request_id"}
	actorKey     = ctxKey{"actor"}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records the authenticated employee id for domain logging.
func WithActor(ctx context.Context, employeeID string) context.Context {
	return context.WithValue(ctx, actorKey, employeeID)
}

func GetActor(ctx context.Context) string {
	value, _ := ctx.Value(actorKey).(string)
	return value
}

// LogAttrs returns slog key/value pairs for whatever is set on ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := GetRequestID(ctx); id != "" {
		attrs = append(attrs, "requestId", id)
	}
	if actor := GetActor(ctx); actor != "" {
		attrs = append(attrs, "actorId", actor)
	}
	return attrs
}
