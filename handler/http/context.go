package http

import (
	"context"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "requestID"
	ctxKeyRoute     ctxKey = "route"
	ctxKeyVersion   ctxKey = "version"
)

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}

	return "unknown"
}

func requestIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(ctxKeyRoute).(string); ok {
		return route
	}

	return "unknown"
}

func routeInContext(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, ctxKeyRoute, route)
}

func versionFromContext(ctx context.Context) string {
	if version, ok := ctx.Value(ctxKeyVersion).(string); ok {
		return version
	}

	return "unknown"
}

func versionInContext(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, ctxKeyVersion, version)
}
