// Package metrics exposes Prometheus collectors for chat exchanges.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
)

// Recorder implements conversation.Observer.
type Recorder struct {
	exchanges *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

var _ conversation.Observer = (*Recorder)(nil)

// NewRegistry 创建注册了Go运行时和进程指标的registry
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewRecorder 在reg上注册问答相关指标
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zorey",
			Name:      "exchanges_total",
			Help:      "Chat exchanges by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zorey",
			Name:      "exchange_duration_seconds",
			Help:      "Time from submit to rendered reply.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.exchanges, r.latency)
	return r
}

func (r *Recorder) ObserveExchange(outcome conversation.Outcome, elapsed time.Duration) {
	r.exchanges.WithLabelValues(string(outcome)).Inc()
	r.latency.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}
