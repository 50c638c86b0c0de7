package observability

import (
	"context"
	"time"
)

// Observer is the engine's observability surface: structured leveled
// logging plus lightweight spans around run phases. Components receive an
// Observer through context; when none is attached they get a no-op, so
// instrumentation never needs nil checks.
type Observer interface {
	// StartSpan begins a named span. The returned Span's End method
	// records the elapsed duration.
	StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)

	Debug(ctx context.Context, msg string, attrs ...Attribute)
	Info(ctx context.Context, msg string, attrs ...Attribute)
	Warn(ctx context.Context, msg string, attrs ...Attribute)
	ErrorLog(ctx context.Context, msg string, attrs ...Attribute)
}

// Span represents a single unit of work.
type Span interface {
	// End completes the span.
	End()
	// SetAttributes adds attributes to the span.
	SetAttributes(attrs ...Attribute)
	// AddEvent records a point-in-time event on the span.
	AddEvent(name string, attrs ...Attribute)
	// RecordError records an error on the span.
	RecordError(err error)
}

// Attribute is a key-value pair of span or log metadata.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value}
}

// Error creates an error attribute.
func Error(err error) Attribute {
	if err == nil {
		return Attribute{Key: "error", Value: ""}
	}
	return Attribute{Key: "error", Value: err.Error()}
}

// Noop is an Observer that discards everything.
type Noop struct{}

var _ Observer = Noop{}

func (Noop) StartSpan(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (Noop) Debug(context.Context, string, ...Attribute)    {}
func (Noop) Info(context.Context, string, ...Attribute)     {}
func (Noop) Warn(context.Context, string, ...Attribute)     {}
func (Noop) ErrorLog(context.Context, string, ...Attribute) {}

type noopSpan struct{}

func (noopSpan) End()                       {}
func (noopSpan) SetAttributes(...Attribute) {}
func (noopSpan) AddEvent(string, ...Attribute) {
}
func (noopSpan) RecordError(error) {}
