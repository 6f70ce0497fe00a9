// Package ctxstore stores request-scoped values under typed string keys.
package ctxstore

import "context"

type Key string

func (k Key) String() string {
	return string(k)
}

const (
	ClientIPKey  = Key("clientIp")
	RequestIDKey = Key("requestId")
)

func With[T any](ctx context.Context, key Key, value T) context.Context {
	return context.WithValue(ctx, key, value)
}

func From[T any](ctx context.Context, key Key) (T, bool) {
	value, ok := ctx.Value(key).(T)
	return value, ok
}
