// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// shared by the command pipeline and the ops gateway.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "bootunpack"

// Metrics groups every collector the bot exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	commands    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	stages      *prometheus.HistogramVec
	downloaded  prometheus.Counter
	rateLimited prometheus.Counter
	sendErrors  *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands received, by command name.",
			},
			[]string{"command"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unpack",
				Name:      "requests_total",
				Help:      "Completed unpack requests, by outcome.",
			},
			[]string{"outcome"},
		),
		stages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "unpack",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each unpack stage in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120, 300},
			},
			[]string{"stage"},
		),
		downloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Bytes downloaded from user supplied URLs.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-chat rate limit.",
		}),
		sendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_errors_total",
				Help:      "Replies that could not be delivered, by channel.",
			},
			[]string{"channel"},
		),
	}
	reg.MustRegister(m.commands, m.outcomes, m.stages, m.downloaded, m.rateLimited, m.sendErrors)
	return m
}

// CommandReceived counts an inbound command.
func (m *Metrics) CommandReceived(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}

// ObserveOutcome counts a finished request and its total duration.
func (m *Metrics) ObserveOutcome(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	m.stages.WithLabelValues("total").Observe(d.Seconds())
}

// ObserveStage records the duration of a single stage ("fetch", "invoke").
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// AddDownloaded adds n downloaded bytes.
func (m *Metrics) AddDownloaded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.downloaded.Add(float64(n))
}

// RateLimited counts a command refused by the rate limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// SendFailed counts a reply that could not be delivered.
func (m *Metrics) SendFailed(channel string) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(channel).Inc()
}

// RegisterPoolGauges exports the worker pool state through callbacks.
func RegisterPoolGauges(reg prometheus.Registerer, workers, busy, queued func() float64) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Configured worker goroutines.",
		}, workers),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Workers currently running a request.",
		}, busy),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "queued_jobs",
			Help:      "Requests waiting for a free worker.",
		}, queued),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
