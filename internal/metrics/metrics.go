// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal         *prometheus.CounterVec
	candidatesDiscoveredTotal *prometheus.CounterVec
	documentsExtractedTotal   *prometheus.CounterVec
	verdictsTotal             *prometheus.CounterVec
	recordsPersistedTotal     prometheus.Counter
	rateLimitDelaySeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eizocrawl_pages_fetched_total",
				Help: "Pages fetched during frontier crawls, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		candidatesDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eizocrawl_candidates_discovered_total",
				Help: "Candidate links produced by the discoverer, labeled by source.",
			},
			[]string{"source"},
		)

		documentsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eizocrawl_documents_extracted_total",
				Help: "Documents extracted, labeled by kind (html/pdf) and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		verdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eizocrawl_verdicts_total",
				Help: "Classification verdicts received, labeled by label and mode.",
			},
			[]string{"label", "mode"},
		)

		recordsPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "eizocrawl_records_persisted_total",
				Help: "Records appended to the destination table.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eizocrawl_rate_limit_delay_seconds",
				Help:    "Histogram of politeness delays per domain.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname label from a URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePageFetch records one fetched page.
func ObservePageFetch(site, status string) {
	if pagesFetchedTotal == nil {
		return
	}
	pagesFetchedTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveCandidates adds discovered candidates for a source.
func ObserveCandidates(source string, n int) {
	if candidatesDiscoveredTotal == nil || n <= 0 {
		return
	}
	candidatesDiscoveredTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveExtraction records one extraction attempt.
func ObserveExtraction(kind, outcome string) {
	if documentsExtractedTotal == nil {
		return
	}
	documentsExtractedTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveVerdict records one classification verdict.
func ObserveVerdict(label, mode string) {
	if verdictsTotal == nil {
		return
	}
	verdictsTotal.WithLabelValues(label, mode).Inc()
}

// ObservePersisted adds appended records.
func ObservePersisted(n int) {
	if recordsPersistedTotal == nil || n <= 0 {
		return
	}
	recordsPersistedTotal.Add(float64(n))
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(d.Seconds())
}
