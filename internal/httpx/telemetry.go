package httpx

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the instrumentation scope of the calendar service.
const ServiceName = "events-calendar"

// Route kinds label every series so dashboards can split browsing, feed
// polling, calendar downloads and editing.
const (
	KindPage = "page"
	KindFeed = "feed"
	KindICal = "ical"
	KindEdit = "edit"
	KindOps  = "ops"
)

// Telemetry instruments calendar requests with spans and metrics.
type Telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewTelemetry uses the global meter and tracer providers.
func NewTelemetry() (*Telemetry, error) {
	return NewTelemetryWith(otel.GetMeterProvider(), otel.GetTracerProvider())
}

func NewTelemetryWith(mp metric.MeterProvider, tp trace.TracerProvider) (*Telemetry, error) {
	meter := mp.Meter(ServiceName)
	t := &Telemetry{tracer: tp.Tracer(ServiceName)}

	var err error
	if t.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Calendar requests served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if t.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time to render a page, feed or download"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if t.failures, err = meter.Int64Counter("http.server.errors",
		metric.WithDescription("Calendar requests answered with a 4xx or 5xx status"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if t.inFlight, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Calendar requests in progress"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create in-flight counter: %w", err)
	}

	return t, nil
}

// responseWriter remembers the status of the response and whether it started.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// routeOf returns the matched route template so that series are labeled
// "/event/{id}/ical" instead of one per event.
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// RouteKind classifies a calendar route template.
func RouteKind(method, route string) string {
	switch {
	case route == "/metrics" || route == "/health":
		return KindOps
	case strings.HasSuffix(route, "/ical") || strings.HasPrefix(route, "/ical/"):
		return KindICal
	case strings.HasPrefix(route, "/events/"):
		return KindFeed
	case strings.HasPrefix(route, "/event/") || method != http.MethodGet:
		return KindEdit
	default:
		return KindPage
	}
}

// Middleware records a span and request metrics for every matched route.
func (t *Telemetry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeOf(r)
		routeAttrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("calendar.route_kind", RouteKind(r.Method, route)),
		}

		ctx, span := t.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithAttributes(routeAttrs...),
			trace.WithAttributes(attribute.String("http.url", r.URL.String())),
		)
		defer span.End()

		t.inFlight.Add(ctx, 1, metric.WithAttributes(routeAttrs...))
		defer t.inFlight.Add(ctx, -1, metric.WithAttributes(routeAttrs...))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		elapsed := time.Since(start).Seconds()
		attrs := append(routeAttrs[:len(routeAttrs):len(routeAttrs)], attribute.Int("http.status_code", rw.statusCode))

		t.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
		t.duration.Record(ctx, elapsed, metric.WithAttributes(attrs...))

		if rw.statusCode >= 400 {
			t.failures.Add(ctx, 1, metric.WithAttributes(append(attrs,
				attribute.String("http.status_class", fmt.Sprintf("%dxx", rw.statusCode/100)))...))
			span.SetAttributes(attribute.Bool("error", true))
		}
		span.SetAttributes(attribute.Int("http.status_code", rw.statusCode))
	})
}
