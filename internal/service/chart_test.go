package service

import (
	"context"
	"errors"
	"testing"

	"coinboard/internal/domain"
	"coinboard/internal/infra"
)

var (
	btc = domain.Asset{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"}
	eth = domain.Asset{ID: "ethereum", Name: "Ethereum", Symbol: "eth"}
)

func newTestChart(p *fakeProvider, r *fakeRenderer) (*ChartSession, *infra.Metrics) {
	m := &infra.Metrics{}
	s := NewChartSession(p, r, 1, "minute", m)
	s.SetClock(fixedClock)
	return s, m
}

func TestChartSession_OpenRenders(t *testing.T) {
	p := &fakeProvider{}
	r := &fakeRenderer{}
	s, m := newTestChart(p, r)

	if err := s.Open(context.Background(), btc, domain.EUR); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	v := s.View()
	if v.State != ChartRendered {
		t.Errorf("state = %s", v.State)
	}
	if v.Title != "Bitcoin (BTC)" {
		t.Errorf("title = %q", v.Title)
	}
	if v.Subtitle != "24h • 14:03:05" {
		t.Errorf("subtitle = %q", v.Subtitle)
	}
	if v.Body != "Bitcoin price (EUR)" {
		t.Errorf("body = %q", v.Body)
	}
	if v.SessionID == "" {
		t.Error("session id should be set")
	}

	q := p.chartCalls[0]
	if q.Days != 1 || q.Interval != "minute" || q.Currency != domain.EUR || q.AssetID != "bitcoin" {
		t.Errorf("chart query = %+v", q)
	}
	if s.LiveInstances() != 1 || m.Snapshot().LiveCharts != 1 {
		t.Error("expected one live instance")
	}
}

func TestChartSession_LoadingIsSynchronous(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{chart: func(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
		<-release
		return sampleSeries(q), nil
	}}
	s, _ := newTestChart(p, &fakeRenderer{})

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), btc, domain.USD) }()
	waitFor(t, "chart fetch", func() bool { return p.chartCount() == 1 })

	v := s.View()
	if v.State != ChartLoading || v.Title != "Bitcoin (BTC)" {
		t.Errorf("view while loading = %+v", v)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestChartSession_ReplacesInstance(t *testing.T) {
	r := &fakeRenderer{}
	s, _ := newTestChart(&fakeProvider{}, r)

	if err := s.Open(context.Background(), btc, domain.USD); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(context.Background(), eth, domain.USD); err != nil {
		t.Fatal(err)
	}

	if len(r.insts) != 2 {
		t.Fatalf("expected two builds, got %d", len(r.insts))
	}
	if !r.insts[0].destroyed {
		t.Error("first instance should be destroyed")
	}
	if r.liveCount() != 1 || s.LiveInstances() != 1 {
		t.Errorf("live = %d", r.liveCount())
	}
	if s.View().Title != "Ethereum (ETH)" {
		t.Errorf("title = %q", s.View().Title)
	}
}

// Open A then B before A resolves; A resolving late must not build.
func TestChartSession_OverlappingOpens(t *testing.T) {
	gates := map[string]chan struct{}{
		"bitcoin":  make(chan struct{}),
		"ethereum": make(chan struct{}),
	}
	p := &fakeProvider{chart: func(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
		<-gates[q.AssetID]
		return sampleSeries(q), nil
	}}
	r := &fakeRenderer{}
	s, _ := newTestChart(p, r)

	errA := make(chan error, 1)
	go func() { errA <- s.Open(context.Background(), btc, domain.USD) }()
	waitFor(t, "A fetch", func() bool { return p.chartCount() == 1 })

	errB := make(chan error, 1)
	go func() { errB <- s.Open(context.Background(), eth, domain.USD) }()
	waitFor(t, "B fetch", func() bool { return p.chartCount() == 2 })

	close(gates["ethereum"])
	if err := <-errB; err != nil {
		t.Fatalf("B error = %v", err)
	}
	close(gates["bitcoin"])
	if err := <-errA; !errors.Is(err, domain.ErrStaleResult) {
		t.Errorf("A error = %v, want ErrStaleResult", err)
	}

	if r.liveCount() != 1 || len(r.specs) != 1 {
		t.Errorf("live = %d builds = %d", r.liveCount(), len(r.specs))
	}
	if r.specs[0].Label != "Ethereum price (USD)" {
		t.Errorf("built for %q", r.specs[0].Label)
	}
	if v := s.View(); v.AssetID != "ethereum" || v.State != ChartRendered {
		t.Errorf("view = %+v", v)
	}
}

func TestChartSession_FailureFromClosed(t *testing.T) {
	p := &fakeProvider{chart: func(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
		return domain.Series{}, &domain.StatusError{Op: "market_chart", StatusCode: 429}
	}}
	s, m := newTestChart(p, &fakeRenderer{})

	if err := s.Open(context.Background(), btc, domain.USD); err == nil {
		t.Fatal("expected error")
	}
	v := s.View()
	if v.State != ChartClosed {
		t.Errorf("state = %s, want closed", v.State)
	}
	if v.Notice != ChartNotice {
		t.Errorf("notice = %q", v.Notice)
	}
	if m.Snapshot().ChartFailures != 1 {
		t.Error("failure not counted")
	}

	s.DismissNotice()
	if s.View().Notice != "" {
		t.Error("notice should be cleared")
	}
}

func TestChartSession_FailureFromRendered(t *testing.T) {
	p := &fakeProvider{}
	r := &fakeRenderer{}
	s, _ := newTestChart(p, r)

	if err := s.Open(context.Background(), btc, domain.USD); err != nil {
		t.Fatal(err)
	}
	p.chart = func(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
		return domain.Series{}, errBoom
	}
	if err := s.Open(context.Background(), eth, domain.USD); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v", err)
	}

	v := s.View()
	if v.State != ChartRendered || v.Title != "Bitcoin (BTC)" || v.AssetID != "bitcoin" {
		t.Errorf("previous chart should be restored, got %+v", v)
	}
	if v.Notice != ChartNotice {
		t.Errorf("notice = %q", v.Notice)
	}
	if r.insts[0].destroyed || r.liveCount() != 1 {
		t.Error("live instance must be untouched on failure")
	}
}

func TestChartSession_RenderFailure(t *testing.T) {
	r := &fakeRenderer{err: errors.New("no canvas")}
	s, _ := newTestChart(&fakeProvider{}, r)

	if err := s.Open(context.Background(), btc, domain.USD); err == nil {
		t.Fatal("expected error")
	}
	if v := s.View(); v.State != ChartClosed || v.Notice != ChartNotice {
		t.Errorf("view = %+v", v)
	}
}

func TestChartSession_CloseInvalidatesFetch(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{chart: func(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
		<-release
		return sampleSeries(q), nil
	}}
	r := &fakeRenderer{}
	s, _ := newTestChart(p, r)

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), btc, domain.USD) }()
	waitFor(t, "chart fetch", func() bool { return p.chartCount() == 1 })

	s.Close()
	close(release)

	if err := <-done; !errors.Is(err, domain.ErrStaleResult) {
		t.Errorf("error = %v", err)
	}
	if s.State() != ChartClosed || len(r.specs) != 0 {
		t.Errorf("state = %s builds = %d", s.State(), len(r.specs))
	}
}

func TestChartSession_CloseKeepsInstanceUntilNextOpen(t *testing.T) {
	r := &fakeRenderer{}
	s, _ := newTestChart(&fakeProvider{}, r)

	s.Open(context.Background(), btc, domain.USD)
	s.Close()

	v := s.View()
	if v.State != ChartClosed || v.Title != "" || v.Body != "" {
		t.Errorf("closed view = %+v", v)
	}
	if s.LiveInstances() != 1 {
		t.Error("instance may stay alive after close")
	}

	s.Open(context.Background(), eth, domain.USD)
	if r.liveCount() != 1 || !r.insts[0].destroyed {
		t.Error("reopen should destroy the lingering instance")
	}

	s.Shutdown()
	if r.liveCount() != 0 {
		t.Error("shutdown should destroy the instance")
	}
}

func TestChartState_String(t *testing.T) {
	tests := []struct {
		state ChartState
		want  string
	}{
		{ChartClosed, "closed"},
		{ChartLoading, "loading"},
		{ChartRendered, "rendered"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestChartState_TextRoundTrip(t *testing.T) {
	var s ChartState
	if err := s.UnmarshalText([]byte("rendered")); err != nil || s != ChartRendered {
		t.Errorf("UnmarshalText = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("open")); err == nil {
		t.Error("unknown state should fail")
	}
}
