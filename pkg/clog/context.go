package clog

import (
	"context"
	"sync"
)

// requestAttrs accumulates log attributes over the life of one request so
// the final access log line carries everything handlers recorded along the
// way.
type requestAttrs struct {
	mu sync.Mutex
	kv map[string]any
}

type requestAttrsKey struct{}

func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestAttrsKey{}, &requestAttrs{
		kv: make(map[string]any),
	})
}

// AddAttribute records one attribute on the request's log context. Outside a
// request (no ContextWithSlog upstream) it is a no-op.
func AddAttribute(ctx context.Context, key string, value any) {
	a, ok := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	if !ok {
		return
	}
	a.mu.Lock()
	a.kv[key] = value
	a.mu.Unlock()
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	a, ok := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	if !ok {
		return
	}
	a.mu.Lock()
	for k, v := range attributes {
		a.kv[k] = v
	}
	a.mu.Unlock()
}

// GetAttributes returns a copy of the accumulated attributes, or nil outside
// a request.
func GetAttributes(ctx context.Context) map[string]any {
	a, ok := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	copied := make(map[string]any, len(a.kv))
	for k, v := range a.kv {
		copied[k] = v
	}
	return copied
}

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}
