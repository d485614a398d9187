package infra

import (
	"testing"
	"time"
)

func TestMetrics_Refreshes(t *testing.T) {
	m := &Metrics{}

	m.RecordRefreshIssued()
	m.RecordRefreshIssued()
	m.RecordRefreshIssued()
	m.RecordRefreshCommitted(1000 * time.Nanosecond)
	m.RecordRefreshCommitted(3000 * time.Nanosecond)
	m.RecordRefreshStale()

	snap := m.Snapshot()

	if snap.RefreshesIssued != 3 {
		t.Errorf("Expected 3 issued, got %d", snap.RefreshesIssued)
	}
	if snap.RefreshesCommitted != 2 {
		t.Errorf("Expected 2 committed, got %d", snap.RefreshesCommitted)
	}
	if snap.RefreshesStale != 1 {
		t.Errorf("Expected 1 stale, got %d", snap.RefreshesStale)
	}

	// Average latency: (1000 + 3000) / 2 = 2000
	if snap.AvgFetchLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgFetchLatencyNs)
	}
}

func TestMetrics_Clients(t *testing.T) {
	m := &Metrics{}

	m.IncrementClients()
	m.IncrementClients()
	m.IncrementClients()

	snap := m.Snapshot()
	if snap.WSClients != 3 {
		t.Errorf("Expected 3 clients, got %d", snap.WSClients)
	}

	m.DecrementClients()
	snap = m.Snapshot()
	if snap.WSClients != 2 {
		t.Errorf("Expected 2 clients, got %d", snap.WSClients)
	}
}

func TestMetrics_Charts(t *testing.T) {
	m := &Metrics{}

	m.RecordChartOpen()
	m.RecordChartFailure()
	m.SetLiveCharts(1)

	snap := m.Snapshot()
	if snap.ChartOpens != 1 || snap.ChartFailures != 1 {
		t.Errorf("unexpected chart counters: %+v", snap)
	}
	if snap.LiveCharts != 1 {
		t.Errorf("Expected 1 live chart, got %d", snap.LiveCharts)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordRefreshCommitted(time.Millisecond)
	m.RecordRefreshFailed()
	m.IncrementClients()

	m.Reset()
	snap := m.Snapshot()

	if snap.RefreshesCommitted != 0 {
		t.Error("Expected 0 commits after reset")
	}
	if snap.RefreshesFailed != 0 {
		t.Error("Expected 0 failures after reset")
	}
	if snap.WSClients != 0 {
		t.Error("Expected 0 clients after reset")
	}
}
