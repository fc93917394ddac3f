// Package metrics provides Prometheus metrics for the punch sync service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	// Pipeline metrics
	punchesFetched   prometheus.Counter
	punchesMalformed prometheus.Counter

	// Writer metrics
	checkinsCreated    prometheus.Counter
	checkinsDuplicate  prometheus.Counter
	checkinsUnresolved prometheus.Counter

	// Cycle metrics
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	transportErrors prometheus.Counter
	lastSyncUnix    *prometheus.GaugeVec
	totalSynced     *prometheus.GaugeVec

	// Maintenance metrics
	rederiveUpdates prometheus.Counter
	purgeDeletes    prometheus.Counter
}

// Cycle outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped" // scope lock was busy
)

// Global metrics manager on a custom registry, so the default Go collectors
// do not leak into the scrape.
var (
	customRegistry = prometheus.NewRegistry()                              //nolint:gochecknoglobals // singleton metrics registry
	globalManager  = NewManager(WithRegistry(customRegistry))              //nolint:gochecknoglobals // singleton metrics manager
)

// NewManager creates a metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "zksync",
		subsystem: "checkins",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	factory := promauto.With(m.registry)
	m.punchesFetched = factory.NewCounter(m.counterOpts("punches_fetched_total", "Raw punches fetched from the transport."))
	m.punchesMalformed = factory.NewCounter(m.counterOpts("punches_malformed_total", "Punches dropped for missing subject code or timestamp."))
	m.checkinsCreated = factory.NewCounter(m.counterOpts("created_total", "Check-in records created."))
	m.checkinsDuplicate = factory.NewCounter(m.counterOpts("skipped_duplicate_total", "Punches skipped because the check-in already existed."))
	m.checkinsUnresolved = factory.NewCounter(m.counterOpts("skipped_unresolved_total", "Punches skipped because no employee identity matched."))
	m.cycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_total",
		Help:      "Sync cycles by outcome.",
	}, []string{"outcome"})
	m.cycleDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a full sync cycle.",
		Buckets:   m.buckets,
	})
	m.transportErrors = factory.NewCounter(m.counterOpts("transport_errors_total", "Fetch failures that aborted a cycle."))
	m.lastSyncUnix = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix time of the last completed cycle per scope.",
	}, []string{"scope"})
	m.totalSynced = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_synced_records",
		Help:      "Lifetime created records per scope, from the sync watermark.",
	}, []string{"scope"})
	m.rederiveUpdates = factory.NewCounter(m.counterOpts("rederive_updates_total", "Log types rewritten by the rederive maintenance pass."))
	m.purgeDeletes = factory.NewCounter(m.counterOpts("purge_deletes_total", "Duplicate records removed by the purge maintenance pass."))

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}
}

// Handler exposes the manager's registry for scraping.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Manager-level recorders.

func (m *Manager) RecordPunchesFetched(n int)     { m.punchesFetched.Add(float64(n)) }
func (m *Manager) RecordPunchesMalformed(n int)   { m.punchesMalformed.Add(float64(n)) }
func (m *Manager) RecordCheckinCreated()          { m.checkinsCreated.Inc() }
func (m *Manager) RecordCheckinDuplicate()        { m.checkinsDuplicate.Inc() }
func (m *Manager) RecordCheckinUnresolved()       { m.checkinsUnresolved.Inc() }
func (m *Manager) RecordCycle(outcome string)     { m.cycles.WithLabelValues(outcome).Inc() }
func (m *Manager) RecordCycleDuration(s float64)  { m.cycleDuration.Observe(s) }
func (m *Manager) RecordTransportError()          { m.transportErrors.Inc() }
func (m *Manager) RecordRederiveUpdates(n int)    { m.rederiveUpdates.Add(float64(n)) }
func (m *Manager) RecordPurgeDeletes(n int)       { m.purgeDeletes.Add(float64(n)) }

func (m *Manager) UpdateLastSync(scope string, unix float64) {
	m.lastSyncUnix.WithLabelValues(scope).Set(unix)
}

func (m *Manager) UpdateTotalSynced(scope string, total int64) {
	m.totalSynced.WithLabelValues(scope).Set(float64(total))
}

// Package-level helpers on the global manager.

func RecordPunchesFetched(n int)    { globalManager.RecordPunchesFetched(n) }
func RecordPunchesMalformed(n int)  { globalManager.RecordPunchesMalformed(n) }
func RecordCheckinCreated()         { globalManager.RecordCheckinCreated() }
func RecordCheckinDuplicate()       { globalManager.RecordCheckinDuplicate() }
func RecordCheckinUnresolved()      { globalManager.RecordCheckinUnresolved() }
func RecordCycle(outcome string)    { globalManager.RecordCycle(outcome) }
func RecordCycleDuration(s float64) { globalManager.RecordCycleDuration(s) }
func RecordTransportError()         { globalManager.RecordTransportError() }
func RecordRederiveUpdates(n int)   { globalManager.RecordRederiveUpdates(n) }
func RecordPurgeDeletes(n int)      { globalManager.RecordPurgeDeletes(n) }

func UpdateLastSync(scope string, unix float64)  { globalManager.UpdateLastSync(scope, unix) }
func UpdateTotalSynced(scope string, total int64) { globalManager.UpdateTotalSynced(scope, total) }

// Handler exposes the global registry for scraping.
func Handler() http.Handler { return globalManager.Handler() }
