package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "feed/internal/storage"

// Metrics holds the OpenTelemetry instruments recorded for each statement.
type Metrics struct {
	QueryCount    metric.Int64Counter
	QueryDuration metric.Float64Histogram
	QueryErrors   metric.Int64Counter
}

// ObservabilityConfig holds logging, tracing and metrics settings. Every
// field is optional.
type ObservabilityConfig struct {
	Logger             *slog.Logger
	Tracer             trace.Tracer
	Metrics            *Metrics
	SlowQueryThreshold time.Duration
	LogQueries         bool
}

func defaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.obs.Logger = logger
	}
}

func WithTracer(tracer trace.Tracer) SessionOption {
	return func(s *Session) {
		s.obs.Tracer = tracer
	}
}

// WithDefaultTracer uses the global OpenTelemetry tracer provider.
func WithDefaultTracer() SessionOption {
	return func(s *Session) {
		s.obs.Tracer = otel.Tracer(instrumentationName)
	}
}

func WithMeter(meter metric.Meter) SessionOption {
	return func(s *Session) {
		s.obs.Metrics = initMetrics(meter)
	}
}

// WithDefaultMeter uses the global OpenTelemetry meter provider.
func WithDefaultMeter() SessionOption {
	return func(s *Session) {
		s.obs.Metrics = initMetrics(otel.Meter(instrumentationName))
	}
}

func WithSlowQueryThreshold(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.obs.SlowQueryThreshold = d
		}
	}
}

// WithQueryLogging logs every statement at debug level, including its SQL.
func WithQueryLogging(enabled bool) SessionOption {
	return func(s *Session) {
		s.obs.LogQueries = enabled
	}
}

func initMetrics(meter metric.Meter) *Metrics {
	queryCount, _ := meter.Int64Counter("feed.db.query.count",
		metric.WithDescription("Total number of SQL statements executed"),
		metric.WithUnit("{query}"),
	)

	queryDuration, _ := meter.Float64Histogram("feed.db.query.duration",
		metric.WithDescription("Statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	queryErrors, _ := meter.Int64Counter("feed.db.query.errors",
		metric.WithDescription("Total number of failed SQL statements"),
		metric.WithUnit("{error}"),
	)

	return &Metrics{
		QueryCount:    queryCount,
		QueryDuration: queryDuration,
		QueryErrors:   queryErrors,
	}
}

// spanWrapper tolerates a nil span so callers need no tracing checks.
type spanWrapper struct {
	span trace.Span
}

func (w spanWrapper) End() {
	if w.span != nil {
		w.span.End()
	}
}

func (w spanWrapper) RecordError(err error) {
	if w.span != nil {
		w.span.RecordError(err)
	}
}

func (w spanWrapper) SetStatus(code codes.Code, description string) {
	if w.span != nil {
		w.span.SetStatus(code, description)
	}
}

func (s *Session) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, spanWrapper) {
	if s.obs.Tracer == nil {
		return ctx, spanWrapper{nil}
	}
	ctx, span := s.obs.Tracer.Start(ctx, name, opts...)
	return ctx, spanWrapper{span}
}

// observe wraps one statement with a span, metrics and logging. A lookup
// that matched no rows is not treated as a failure.
func (s *Session) observe(ctx context.Context, operation, query string, fn func(ctx context.Context) error) error {
	ctx, span := s.startSpan(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.dialect.Name()),
			attribute.String("db.operation", operation),
			attribute.Bool("db.in_transaction", s.InTransaction()),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	failure := err
	if errors.Is(err, sql.ErrNoRows) {
		failure = nil
	}
	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
	}

	s.recordMetrics(ctx, operation, duration, failure)
	s.logQuery(ctx, operation, query, duration, failure)
	return err
}

func (s *Session) recordMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	if s.obs.Metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.system", s.dialect.Name()),
	)

	s.obs.Metrics.QueryCount.Add(ctx, 1, attrs)
	s.obs.Metrics.QueryDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		s.obs.Metrics.QueryErrors.Add(ctx, 1, attrs)
	}
}

func (s *Session) logQuery(ctx context.Context, operation, query string, duration time.Duration, err error) {
	if s.obs.Logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
	}
	if s.obs.LogQueries {
		attrs = append(attrs, slog.String("query", query))
	}

	if err != nil {
		s.obs.Logger.LogAttrs(ctx, slog.LevelError, "query failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}

	if duration > s.obs.SlowQueryThreshold {
		s.obs.Logger.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
		return
	}

	if s.obs.LogQueries {
		s.obs.Logger.LogAttrs(ctx, slog.LevelDebug, "query executed", attrs...)
	}
}
