package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// SlogObserver implements Observer on top of the standard library slog.
// Spans are rendered as paired start/end debug events carrying the elapsed
// duration, which is enough operational visibility for a single-process
// engine without pulling in a tracing backend.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlog creates an observer around the given logger. A nil logger uses a
// text handler on stderr at the level named by NODEFLOW_LOG_LEVEL
// (debug|info|warn|error, default info).
func NewSlog(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: levelFromEnv(),
		}))
	}
	return &SlogObserver{logger: logger}
}

var _ Observer = (*SlogObserver)(nil)

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("NODEFLOW_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (o *SlogObserver) log(ctx context.Context, level slog.Level, msg string, attrs []Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, level, msg, logAttrs...)
}

func (o *SlogObserver) Debug(ctx context.Context, msg string, attrs ...Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *SlogObserver) Info(ctx context.Context, msg string, attrs ...Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *SlogObserver) Warn(ctx context.Context, msg string, attrs ...Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *SlogObserver) ErrorLog(ctx context.Context, msg string, attrs ...Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

// StartSpan begins a named span and emits a debug event at its start. The
// returned context is unchanged; End logs the elapsed duration.
func (o *SlogObserver) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     attrs,
	}
	span.logEvent(ctx, "span.start", nil)
	return ctx, span
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	attrs []Attribute
}

func (s *slogSpan) logEvent(ctx context.Context, event string, extra []Attribute) {
	logAttrs := []slog.Attr{
		slog.String("span", s.name),
		slog.String("event", event),
	}
	for _, attr := range s.attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	for _, attr := range extra {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "span", logAttrs...)
}

func (s *slogSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logEvent(context.Background(), "span.end", []Attribute{
		Duration("duration", time.Since(s.startTime)),
	})
}

func (s *slogSpan) SetAttributes(attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *slogSpan) AddEvent(name string, attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logEvent(context.Background(), name, attrs)
}

func (s *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logEvent(context.Background(), "span.error", []Attribute{Error(err)})
}
