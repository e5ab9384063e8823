// Package metrics exposes pipeline outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nilp0inter/monana/pkg/log"
	"github.com/nilp0inter/monana/pkg/pipeline"
)

const namespace = "monana"

// Recorder counts outcomes. It implements [pipeline.OutcomeSink].
type Recorder struct {
	registry *prometheus.Registry
	files    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a [Recorder] with its own registry, which also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed, by ruleset and status.",
		}, []string{"ruleset", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed files, by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time to evaluate, resolve and apply one file in one ruleset.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"ruleset"}),
	}

	r.registry.MustRegister(
		r.files,
		r.errors,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Record implements [pipeline.OutcomeSink].
func (r *Recorder) Record(_ context.Context, o pipeline.Outcome) {
	r.files.WithLabelValues(o.Ruleset, string(o.Status)).Inc()
	r.duration.WithLabelValues(o.Ruleset).Observe(o.Duration.Seconds())

	if o.Status == pipeline.StatusError {
		r.errors.WithLabelValues(o.ErrorKind).Inc()
	}
}

// Gatherer returns the registry backing r.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes r on addr at /metrics until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	log.WithContext(ctx).InfoContext(ctx, "serving metrics", slog.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // Best effort.
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
