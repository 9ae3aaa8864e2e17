package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	reads           prometheus.Counter
	readBytes       prometheus.Counter
	readErrors      prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &metrics{
		reads: f.NewCounter(prometheus.CounterOpts{
			Name: "seqstore_reads_total",
			Help: "Total number of records read.",
		}),
		readBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "seqstore_read_bytes_total",
			Help: "Total size of records read.",
		}),
		readErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "seqstore_read_errors_total",
			Help: "Total number of failed record reads.",
		}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqstore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "code"}),
	}
}
