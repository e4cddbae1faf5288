package api

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"feeminton/internal/adapters/http/perf"
	"feeminton/pkg/requestid"
)

// DefaultSlowUpstreamMs is the default threshold for slow API call warnings.
const DefaultSlowUpstreamMs = 1000

var slowUpstreamMs int64
var slowUpstreamOnce sync.Once

func getSlowUpstreamThreshold() float64 {
	slowUpstreamOnce.Do(func() {
		ms := DefaultSlowUpstreamMs
		if v := os.Getenv("FEEMINTON_SLOW_UPSTREAM_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		atomic.StoreInt64(&slowUpstreamMs, int64(ms))
	})
	return float64(atomic.LoadInt64(&slowUpstreamMs))
}

// Observer receives one call per finished upstream request. Status is 0
// when the transport failed.
type Observer interface {
	ObserveUpstream(method, route string, status int, seconds float64)
}

// TimedTransport stamps outbound requests with a request ID and times them.
type TimedTransport struct {
	Base      http.RoundTripper
	Collector *perf.Collector // optional
	Observer  Observer        // optional
	threshold float64
}

// NewTimedTransport wraps base (http.DefaultTransport when nil).
// PRE: none
// POST: Returns a RoundTripper that records every call
func NewTimedTransport(base http.RoundTripper, collector *perf.Collector, observer Observer) *TimedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &TimedTransport{
		Base:      base,
		Collector: collector,
		Observer:  observer,
		threshold: getSlowUpstreamThreshold(),
	}
}

// RoundTrip implements http.RoundTripper.
// PRE: req is a valid outbound request
// POST: The sent request carries X-Request-Id; timing is logged and recorded
func (t *TimedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqID := requestid.FromContext(req.Context())
	if reqID == "" {
		reqID = uuid.NewString()
	}
	out := req.Clone(req.Context())
	out.Header.Set(requestid.Header, reqID)

	route := NormalizeRoute(req.URL.Path)
	start := time.Now()
	resp, err := t.Base.RoundTrip(out)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	attrs := []any{
		"request_id", reqID,
		"method", req.Method,
		"route", route,
		"status", status,
		"duration_ms", durationMs,
	}
	switch {
	case err != nil:
		slog.Warn("upstream_failed", append(attrs, "error", err)...)
	case durationMs >= t.threshold:
		slog.Warn("slow_upstream", attrs...)
	default:
		slog.Debug("upstream", attrs...)
	}

	if t.Collector != nil {
		t.Collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       req.Method + " " + route,
			StatusCode: status,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
	if t.Observer != nil {
		t.Observer.ObserveUpstream(req.Method, route, status, durationMs/1000.0)
	}
	return resp, err
}

// NormalizeRoute replaces numeric path segments with {id} so metrics and
// perf stats group calls per endpoint.
func NormalizeRoute(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
