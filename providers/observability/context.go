package observability

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var observerContextKey = contextKey{}

// ContextWithObserver returns a new context carrying the given observer.
func ContextWithObserver(ctx context.Context, observer Observer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerContextKey, observer)
}

// FromContext extracts the Observer from the context. When no observer is
// attached it returns Noop, so callers can instrument unconditionally.
func FromContext(ctx context.Context) Observer {
	if ctx == nil {
		return Noop{}
	}
	if observer, ok := ctx.Value(observerContextKey).(Observer); ok && observer != nil {
		return observer
	}
	return Noop{}
}
