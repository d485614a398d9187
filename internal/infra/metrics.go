package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	refreshesIssued    atomic.Uint64
	refreshesCommitted atomic.Uint64
	refreshesStale     atomic.Uint64
	refreshesFailed    atomic.Uint64
	chartOpens         atomic.Uint64
	chartFailures      atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	liveCharts atomic.Int32
	wsClients  atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordRefreshIssued counts a dispatched snapshot fetch.
func (m *Metrics) RecordRefreshIssued() {
	m.refreshesIssued.Add(1)
}

// RecordRefreshCommitted counts a committed snapshot with its fetch latency.
func (m *Metrics) RecordRefreshCommitted(latency time.Duration) {
	m.refreshesCommitted.Add(1)
	m.latencySumNs.Add(int64(latency))
	m.latencyCount.Add(1)
}

// RecordRefreshStale counts a superseded result that was discarded.
func (m *Metrics) RecordRefreshStale() {
	m.refreshesStale.Add(1)
}

// RecordRefreshFailed counts a failed snapshot fetch.
func (m *Metrics) RecordRefreshFailed() {
	m.refreshesFailed.Add(1)
}

// RecordChartOpen counts a chart open request.
func (m *Metrics) RecordChartOpen() {
	m.chartOpens.Add(1)
}

// RecordChartFailure counts a failed chart series fetch.
func (m *Metrics) RecordChartFailure() {
	m.chartFailures.Add(1)
}

// SetLiveCharts sets the number of live chart instances (0 or 1).
func (m *Metrics) SetLiveCharts(n int32) {
	m.liveCharts.Store(n)
}

// IncrementClients increments connected websocket clients by 1.
func (m *Metrics) IncrementClients() {
	m.wsClients.Add(1)
}

// DecrementClients decrements connected websocket clients by 1.
func (m *Metrics) DecrementClients() {
	m.wsClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RefreshesIssued    uint64    `json:"refreshes_issued"`
	RefreshesCommitted uint64    `json:"refreshes_committed"`
	RefreshesStale     uint64    `json:"refreshes_stale"`
	RefreshesFailed    uint64    `json:"refreshes_failed"`
	ChartOpens         uint64    `json:"chart_opens"`
	ChartFailures      uint64    `json:"chart_failures"`
	AvgFetchLatencyNs  int64     `json:"avg_fetch_latency_ns"`
	LiveCharts         int32     `json:"live_charts"`
	WSClients          int32     `json:"ws_clients"`
	Timestamp          time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RefreshesIssued:    m.refreshesIssued.Load(),
		RefreshesCommitted: m.refreshesCommitted.Load(),
		RefreshesStale:     m.refreshesStale.Load(),
		RefreshesFailed:    m.refreshesFailed.Load(),
		ChartOpens:         m.chartOpens.Load(),
		ChartFailures:      m.chartFailures.Load(),
		AvgFetchLatencyNs:  avgLatency,
		LiveCharts:         m.liveCharts.Load(),
		WSClients:          m.wsClients.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.refreshesIssued.Store(0)
	m.refreshesCommitted.Store(0)
	m.refreshesStale.Store(0)
	m.refreshesFailed.Store(0)
	m.chartOpens.Store(0)
	m.chartFailures.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.liveCharts.Store(0)
	m.wsClients.Store(0)
}
