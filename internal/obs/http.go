package obs

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute labels requests chi could not route, keeping label
// cardinality bounded by the route table.
const unmatchedRoute = "unmatched"

var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// HTTPMetrics groups the request collectors of the API.
type HTTPMetrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	ResponseBytes *prometheus.HistogramVec
	InFlight      prometheus.Gauge
}

// NewHTTPMetrics registers the request collectors on reg (the default
// registerer when nil). Latency buckets are milliseconds.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = defaultLatencyBuckets
	}
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		ResponseBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size. Report listings dominate the upper buckets.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
		}, []string{"route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}
	mustRegisterCollector(reg, m.Requests, func(c prometheus.Collector) {
		if v, ok := c.(*prometheus.CounterVec); ok {
			m.Requests = v
		}
	})
	mustRegisterCollector(reg, m.Latency, func(c prometheus.Collector) {
		if v, ok := c.(*prometheus.HistogramVec); ok {
			m.Latency = v
		}
	})
	mustRegisterCollector(reg, m.ResponseBytes, func(c prometheus.Collector) {
		if v, ok := c.(*prometheus.HistogramVec); ok {
			m.ResponseBytes = v
		}
	})
	mustRegisterCollector(reg, m.InFlight, func(c prometheus.Collector) {
		if v, ok := c.(prometheus.Gauge); ok {
			m.InFlight = v
		}
	})
	return m
}

// ParseBuckets reads a comma separated list of millisecond boundaries.
// Invalid and non-positive entries are skipped; the result is sorted.
func ParseBuckets(csv string) []float64 {
	var out []float64
	for _, field := range strings.FieldsFunc(csv, func(r rune) bool { return r == ',' || r == ' ' }) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// Middleware records request count, latency and response size. The route
// label is the chi pattern resolved once routing is done.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		m.InFlight.Inc()
		start := time.Now()
		defer func() {
			m.InFlight.Dec()
			route := Route(r)
			m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(statusOf(ww))).Inc()
			m.Latency.WithLabelValues(r.Method, route).Observe(float64(time.Since(start)) / float64(time.Millisecond))
			m.ResponseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
		}()
		next.ServeHTTP(ww, r)
	})
}

// Tracing opens a server span per request, continuing the caller's trace when
// the request carries propagation headers. The span is renamed after routing
// so that /api/v1/invoices/{number} groups every invoice number.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("lavado.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := Route(r)
		status := statusOf(ww)
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("url.path", r.URL.Path),
			attribute.Int("http.response.status_code", status),
			attribute.Int("http.response.body.size", ww.BytesWritten()),
		)
		if id := middleware.GetReqID(r.Context()); id != "" {
			span.SetAttributes(attribute.String("lavado.request_id", id))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// Route returns the chi pattern that served r. Call it after the router ran;
// chi fills the shared route context while dispatching.
func Route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return strings.TrimSuffix(pattern, "/*")
		}
	}
	return unmatchedRoute
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
