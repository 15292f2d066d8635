// Package telemetry keeps in-process HTTP and reservation metrics and serves
// them in the Prometheus text exposition format.
package telemetry

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/slotengine/internal/platform/audit"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// histogram stores non-cumulative bucket counts; export accumulates them.
type histogram struct {
	mu      sync.Mutex
	buckets []int64
	count   int64
	sum     float64
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range durationBuckets {
		if v <= b {
			h.buckets[i]++
			return
		}
	}
}

func (h *histogram) snapshot() (cum []int64, count int64, sum float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum = make([]int64, len(h.buckets))
	var running int64
	for i, c := range h.buckets {
		running += c
		cum[i] = running
	}
	return cum, h.count, h.sum
}

type requestKey struct {
	method, route, status string
}

// Metrics is safe for concurrent use. The zero value is not usable; call New.
type Metrics struct {
	active int64

	mu        sync.RWMutex
	durations map[requestKey]*histogram
	events    map[audit.EventType]int64

	pool *pgxpool.Pool
}

func New() *Metrics {
	return &Metrics{
		durations: make(map[requestKey]*histogram),
		events:    make(map[audit.EventType]int64),
	}
}

// WithPool adds connection pool gauges to the exposition.
func (m *Metrics) WithPool(pool *pgxpool.Pool) *Metrics {
	m.pool = pool
	return m
}

// Middleware records request latency by method, route pattern and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			start := time.Now()
			err := next(c)
			atomic.AddInt64(&m.active, -1)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.histogram(requestKey{c.Request().Method, route, strconv.Itoa(status)}).
				observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) histogram(k requestKey) *histogram {
	m.mu.RLock()
	h, ok := m.durations[k]
	m.mu.RUnlock()
	if ok {
		return h
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.durations[k]; !ok {
		h = &histogram{buckets: make([]int64, len(durationBuckets))}
		m.durations[k] = h
	}
	return h
}

// Record counts a reservation event. It satisfies audit.Sink.
func (m *Metrics) Record(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	m.events[e.Type]++
	m.mu.Unlock()
	return nil
}

// EventCount returns how many events of type t were recorded.
func (m *Metrics) EventCount(t audit.EventType) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events[t]
}

// Handler serves GET /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, m.Expose())
	}
}

// Expose renders every metric in Prometheus text format with stable ordering.
func (m *Metrics) Expose() string {
	var b strings.Builder

	m.mu.RLock()
	keys := make([]requestKey, 0, len(m.durations))
	for k := range m.durations {
		keys = append(keys, k)
	}
	hists := make(map[requestKey]*histogram, len(keys))
	for _, k := range keys {
		hists[k] = m.durations[k]
	}
	types := make([]string, 0, len(m.events))
	counts := make(map[string]int64, len(m.events))
	for t, n := range m.events {
		types = append(types, string(t))
		counts[string(t)] = n
	}
	m.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		a, z := keys[i], keys[j]
		if a.route != z.route {
			return a.route < z.route
		}
		if a.method != z.method {
			return a.method < z.method
		}
		return a.status < z.status
	})
	sort.Strings(types)

	const reqName = "http_server_request_duration_seconds"
	fmt.Fprintf(&b, "# HELP %s Duration of HTTP requests in seconds.\n# TYPE %s histogram\n", reqName, reqName)
	for _, k := range keys {
		cum, count, sum := hists[k].snapshot()
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", k.method, k.route, k.status)
		for i, le := range durationBuckets {
			fmt.Fprintf(&b, "%s_bucket{%s,le=\"%g\"} %d\n", reqName, labels, le, cum[i])
		}
		fmt.Fprintf(&b, "%s_bucket{%s,le=\"+Inf\"} %d\n", reqName, labels, count)
		fmt.Fprintf(&b, "%s_sum{%s} %s\n", reqName, labels, formatFloat(sum))
		fmt.Fprintf(&b, "%s_count{%s} %d\n", reqName, labels, count)
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&m.active))

	b.WriteString("# HELP slot_reservation_events_total Reservation events by type.\n")
	b.WriteString("# TYPE slot_reservation_events_total counter\n")
	for _, t := range types {
		fmt.Fprintf(&b, "slot_reservation_events_total{type=%q} %d\n", t, counts[t])
	}
	b.WriteByte('\n')

	if m.pool != nil {
		st := m.pool.Stat()
		b.WriteString("# HELP db_pool_connections Database pool connections by state.\n")
		b.WriteString("# TYPE db_pool_connections gauge\n")
		fmt.Fprintf(&b, "db_pool_connections{state=\"acquired\"} %d\n", st.AcquiredConns())
		fmt.Fprintf(&b, "db_pool_connections{state=\"idle\"} %d\n", st.IdleConns())
		fmt.Fprintf(&b, "db_pool_connections{state=\"total\"} %d\n\n", st.TotalConns())
	}
	return b.String()
}

func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
