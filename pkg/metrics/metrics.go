package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the registry served on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets tuned for request handling that includes one or two outbound API calls
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// External API client metrics (Turnstile, Resend, Google Sheets)
	ExternalRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_client_operation_duration_seconds",
			Help:    "External API call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"service", "operation", "status"},
	)

	ExternalRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_client_operation_total",
			Help: "Total number of external API calls",
		},
		[]string{"service", "operation", "status"},
	)

	// Cache Metrics
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	// Business Metrics
	ContactFormSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_contact_form_submissions_total",
			Help: "Total number of contact form submissions by outcome",
		},
		[]string{"status"},
	)

	RateLimitDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_contact_rate_limit_decisions_total",
			Help: "Contact rate limiter decisions",
		},
		[]string{"decision"},
	)

	DirectoryRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_directory_requests_total",
			Help: "Directory listing requests",
		},
		[]string{"directory", "status"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open
	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "external_client_circuit_breaker_state",
			Help: "Circuit breaker state per outbound dependency",
		},
		[]string{"service"},
	)

	// Infrastructure Metrics
	GoRoutines = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// Init registers the standard process and Go collectors, labelled with the service name.
func Init(serviceName string) {
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service_name": serviceName}, Registry)
	wrapped.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordInfrastructureMetrics collects infrastructure metrics periodically until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// ObserveExternalCall records duration and count for one outbound API call
func ObserveExternalCall(service, operation, status string, start time.Time) {
	ExternalRequestDuration.WithLabelValues(service, operation, status).Observe(MeasureDuration(start))
	ExternalRequestTotal.WithLabelValues(service, operation, status).Inc()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
