package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "event-store-dashboard/api"
	requestSpanName = "dashboard.request"
)

// requestMetrics accumulates per-request timings and emits one structured
// log record plus one span when the request finishes. With no tracer
// provider installed the span side is a no-op.
type requestMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	start  time.Time

	authDuration   time.Duration
	fetchDuration  time.Duration
	filterDuration time.Duration
	encodeDuration time.Duration
	itemsReturned  int
	errorStage     string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithAttributes(attribute.String("http.route", route)))
	return &requestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
	}, spanCtx
}

func (m *requestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *requestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *requestMetrics) ObserveFilter(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.filterDuration = duration
}

func (m *requestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *requestMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))

	if m.logger != nil {
		fields := log.Fields{
			"route":          m.route,
			"status":         status,
			"total_ms":       totalMs,
			"items_returned": m.itemsReturned,
		}
		if m.authDuration > 0 {
			fields["auth_ms"] = durationToMillis(m.authDuration)
		}
		if m.fetchDuration > 0 {
			fields["fetch_ms"] = durationToMillis(m.fetchDuration)
		}
		if m.filterDuration > 0 {
			fields["filter_ms"] = durationToMillis(m.filterDuration)
		}
		if m.encodeDuration > 0 {
			fields["encode_ms"] = durationToMillis(m.encodeDuration)
		}
		if m.errorStage != "" {
			fields["error_stage"] = m.errorStage
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		m.logger.WithFields(fields).Info("dashboard.request.metrics")
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Float64("dashboard.total_ms", totalMs),
			attribute.Int("dashboard.items_returned", m.itemsReturned),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("dashboard.error_stage", m.errorStage))
		}
		switch {
		case err != nil:
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		case m.errorStage != "":
			m.span.SetStatus(codes.Error, m.errorStage)
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
