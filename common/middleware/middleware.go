package middleware

import (
	"net/http"
	"strconv"
	"time"

	hr "github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type Middleware func(hr.Handle) hr.Handle

// Chain composites given handler and middlewares
func Chain(h hr.Handle, ms ...Middleware) hr.Handle {
	for _, m := range ms {
		h = m(h)
	}
	return h
}

// PanicRecoverer recovers from panic of underlying handlers
func PanicRecoverer() Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			defer func() {
				if reason := recover(); reason != nil {
					log.WithField("panicReason", reason).Error("got panic from underlying handler")
					http.Error(w, "service error", http.StatusInternalServerError)
				}
			}()
			h(w, r, p)
		}
	}
}

// statusRecorder captures the status code written by the underlying handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLogger logs one entry per processed request
func AccessLogger() Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			h(rec, r, p)
			log.WithFields(log.Fields{
				"method":        r.Method,
				"path":          r.URL.Path,
				"status":        rec.status,
				"latencyMillis": time.Since(start).Milliseconds(),
			}).Info("request served")
		}
	}
}

// Instrumenter emits request count and latency metrics for the wrapped route
type Instrumenter struct {
	requestCount   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func NewInstrumenter(reg prometheus.Registerer) (*Instrumenter, error) {
	m := &Instrumenter{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hive_http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hive_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	if err := reg.Register(m.requestCount); err != nil {
		return nil, err
	}
	if err := reg.Register(m.requestLatency); err != nil {
		return nil, err
	}
	return m, nil
}

// Instrument labels metrics with the route pattern instead of the raw path so that
// page identifiers don't explode label cardinality
func (m *Instrumenter) Instrument(route string) Middleware {
	return func(h hr.Handle) hr.Handle {
		return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			h(rec, r, p)
			m.requestCount.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.requestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	}
}
