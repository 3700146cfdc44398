package middleware

import (
	"context"

	"perfreview/internal/domain/auth"
	"perfreview/internal/requestctx"
)

type ctxKey string

const ctxKeyUser ctxKey = "identity"

func WithUser(ctx context.Context, identity auth.Identity) context.Context {
	ctx = requestctx.WithActor(ctx, identity.EmployeeID)
	return context.WithValue(ctx, ctxKeyUser, identity)
}

func GetUser(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(ctxKeyUser).(auth.Identity)
	return identity, ok
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
