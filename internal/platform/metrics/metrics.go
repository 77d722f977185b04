package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across services.
// Services take *Metrics and tolerate nil so unit tests can skip it.
type Metrics struct {
	SearchesTotal       prometheus.Counter
	SourceScanDuration  *prometheus.HistogramVec
	SourceScanFailures  *prometheus.CounterVec
	EntriesCreated      prometheus.Counter
	ImportRows          *prometheus.CounterVec
	LinksCreated        prometheus.Counter
	LinksVerified       prometheus.Counter
	SuggestionIncrement prometheus.Counter
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		SearchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persondb_searches_total",
			Help: "Total unified search queries served",
		}),
		SourceScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "persondb_source_scan_duration_seconds",
			Help:    "Latency of per-source candidate scans",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"source"}),
		SourceScanFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "persondb_source_scan_failures_total",
			Help: "Per-source scan failures isolated from the overall search",
		}, []string{"source"}),
		EntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persondb_entries_created_total",
			Help: "Entries created via direct entry or import",
		}),
		ImportRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "persondb_import_rows_total",
			Help: "Import rows by outcome",
		}, []string{"outcome"}),
		LinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persondb_person_links_created_total",
			Help: "Person links created by identity resolution",
		}),
		LinksVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persondb_person_links_verified_total",
			Help: "Person links manually verified by operators",
		}),
		SuggestionIncrement: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persondb_search_suggestions_recorded_total",
			Help: "Search keywords recorded into the suggestion store",
		}),
	}
}

// ObserveSourceScan records one per-source scan duration.
func (m *Metrics) ObserveSourceScan(source string, seconds float64) {
	if m == nil {
		return
	}
	m.SourceScanDuration.WithLabelValues(source).Observe(seconds)
}

// IncrementSourceFailure records an isolated source failure.
func (m *Metrics) IncrementSourceFailure(source string) {
	if m == nil {
		return
	}
	m.SourceScanFailures.WithLabelValues(source).Inc()
}

// IncrementSearches records one served search.
func (m *Metrics) IncrementSearches() {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
}

// IncrementEntriesCreated records one created entry.
func (m *Metrics) IncrementEntriesCreated() {
	if m == nil {
		return
	}
	m.EntriesCreated.Inc()
}

// IncrementImportRows records rows by outcome ("ok" or "failed").
func (m *Metrics) IncrementImportRows(outcome string, n int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues(outcome).Add(float64(n))
}

// IncrementLinksCreated records one created person link.
func (m *Metrics) IncrementLinksCreated() {
	if m == nil {
		return
	}
	m.LinksCreated.Inc()
}

// IncrementLinksVerified records one verified person link.
func (m *Metrics) IncrementLinksVerified() {
	if m == nil {
		return
	}
	m.LinksVerified.Inc()
}

// IncrementSuggestions records one suggestion-store increment.
func (m *Metrics) IncrementSuggestions() {
	if m == nil {
		return
	}
	m.SuggestionIncrement.Inc()
}
