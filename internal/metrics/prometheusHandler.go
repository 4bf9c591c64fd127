package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of ingestion jobs in queue",
})

var dispatcherSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dispatcher_signal_total",
	Help: "How often the dispatcher has signaled to start a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "semantic_cache_lookups_total",
	Help: "Semantic cache lookups labelled by result (hit, miss, error, disabled)",
}, []string{"result"})

var cacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "semantic_cache_stores_total",
	Help: "Semantic cache writes labelled by result (ok, error)",
}, []string{"result"})

var retrievedPassages = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "retrieved_passages",
	Help:    "Passages per request before and after the score filter.",
	Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20},
}, []string{"stage"})

var generationFragments = promauto.NewCounter(prometheus.CounterOpts{
	Name: "generation_fragments_total",
	Help: "Text fragments relayed from the generation provider",
})

var ingestedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingested_documents_total",
	Help: "Ingested documents labelled by status",
}, []string{"status"})

// HttpStatusRecorder remembers the status written through it.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewHttpStatusRecorder(w http.ResponseWriter) *HttpStatusRecorder {
	return &HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush on the underlying writer for SSE.
func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func CacheStore(result string) {
	cacheStores.WithLabelValues(result).Inc()
}

func RetrievedPassages(stage string, n int) {
	retrievedPassages.WithLabelValues(stage).Observe(float64(n))
}

func GenerationFragment() {
	generationFragments.Inc()
}

func IngestedDocument(status string) {
	ingestedDocuments.WithLabelValues(status).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent answering or ingesting.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
