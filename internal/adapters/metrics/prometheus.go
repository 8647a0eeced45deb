package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callbridge_reconcile_ticks_total",
		Help: "Total raw session parameter updates processed",
	})

	SessionSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_session_signals_total",
		Help: "Host callbacks emitted, by signal",
	}, []string{"signal"})

	DisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_disconnects_total",
		Help: "Disconnect callbacks emitted, by reason kind",
	}, []string{"kind"})

	ControlOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_control_ops_total",
		Help: "Call-control operations, by operation and outcome",
	}, []string{"op", "status"})

	ControlOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callbridge_control_op_duration_seconds",
		Help:    "Call-control request duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	BannersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_banners_total",
		Help: "Notification banners, by outcome",
	}, []string{"outcome"})

	FeedReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callbridge_feed_reconnects_total",
		Help: "Session feed reconnect attempts",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callbridge_http_requests_total",
		Help: "Diagnostics server requests, by method, path and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "callbridge_http_request_duration_seconds",
		Help:    "Diagnostics server request duration",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "path"})
)
