package interceptors

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hedisam/assetd/server/internal/store"
)

const namespace = "assetd"

// InterceptWithDefaultMetrics instruments handler with in-flight, request count and latency
// metrics registered on reg.
func InterceptWithDefaultMetrics(reg prometheus.Registerer, handler http.Handler) http.Handler {
	inFlightGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})
	requestCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, labeled by status code and method",
	}, []string{"code", "method"})
	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of HTTP request durations in seconds",
	}, []string{"method"})

	reg.MustRegister(inFlightGauge, requestCount, requestLatency)

	return promhttp.InstrumentHandlerInFlight(inFlightGauge,
		promhttp.InstrumentHandlerDuration(requestLatency,
			promhttp.InstrumentHandlerCounter(requestCount, handler),
		),
	)
}

// AssetMetrics counts store writes and remote fetch failures.
type AssetMetrics struct {
	written       *prometheus.CounterVec
	writeFailures *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
}

func NewAssetMetrics(reg prometheus.Registerer) *AssetMetrics {
	m := &AssetMetrics{
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_written_total",
			Help:      "Assets successfully written to the store, labeled by origin",
		}, []string{"origin"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_write_failures_total",
			Help:      "Asset writes that failed, labeled by origin",
		}, []string{"origin"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Remote fetches that failed, labeled by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.written, m.writeFailures, m.fetchFailures)
	return m
}

func (m *AssetMetrics) AssetWritten(origin store.Origin) {
	if m == nil {
		return
	}
	m.written.WithLabelValues(string(origin)).Inc()
}

func (m *AssetMetrics) AssetWriteFailed(origin store.Origin) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(string(origin)).Inc()
}

func (m *AssetMetrics) FetchFailed(reason string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(reason).Inc()
}
