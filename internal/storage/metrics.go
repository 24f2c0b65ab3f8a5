package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for storage operations.
type Observer interface {
	RecordOperation(op string, duration time.Duration, err error)
	RecordUploadBytes(n int64)
}

// PrometheusObserver exports storage metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// NewPrometheusObserver registers operation latency, failure and byte counters.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "docgate"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Latency of object store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Count of failed object store calls.",
		}, []string{"operation"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes streamed to the object store by successful uploads.",
		}),
	}
	for _, c := range []prometheus.Collector{o.duration, o.failures, o.uploadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
	}
	return o, nil
}

// RecordOperation observes the duration of op and counts it as failed when err is set.
func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues(op).Inc()
	}
}

// RecordUploadBytes adds n to the uploaded bytes counter.
func (o *PrometheusObserver) RecordUploadBytes(n int64) {
	if o == nil {
		return
	}
	o.uploadBytes.Add(float64(n))
}

type instrumented struct {
	next Storage
	obs  Observer
}

// Instrumented wraps next so every call is reported to obs. Errors pass through untouched.
func Instrumented(next Storage, obs Observer) Storage {
	return &instrumented{next: next, obs: obs}
}

func (s *instrumented) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	start := time.Now()
	created, err := s.next.EnsureBucket(ctx, bucket)
	s.obs.RecordOperation("ensure_bucket", time.Since(start), err)
	return created, err
}

func (s *instrumented) Put(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	cr := &countingReader{r: body}
	start := time.Now()
	err := s.next.Put(ctx, bucket, name, cr, contentType)
	s.obs.RecordOperation("put", time.Since(start), err)
	if err == nil {
		s.obs.RecordUploadBytes(cr.n)
	}
	return err
}

func (s *instrumented) List(ctx context.Context, bucket string) ([]Object, error) {
	start := time.Now()
	objects, err := s.next.List(ctx, bucket)
	s.obs.RecordOperation("list", time.Since(start), err)
	return objects, err
}

func (s *instrumented) Remove(ctx context.Context, bucket, name string) error {
	start := time.Now()
	err := s.next.Remove(ctx, bucket, name)
	s.obs.RecordOperation("remove", time.Since(start), err)
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
