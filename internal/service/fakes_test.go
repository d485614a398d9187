package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coinboard/internal/domain"

	"github.com/shopspring/decimal"
)

type memoryKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	setHits int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) GetValue(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) SetValue(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setHits++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

type fakeProvider struct {
	mu          sync.Mutex
	marketCalls []domain.MarketQuery
	chartCalls  []domain.ChartQuery
	markets     func(ctx context.Context, q domain.MarketQuery) ([]domain.Asset, error)
	chart       func(ctx context.Context, q domain.ChartQuery) (domain.Series, error)
}

func (p *fakeProvider) FetchMarkets(ctx context.Context, q domain.MarketQuery) ([]domain.Asset, error) {
	p.mu.Lock()
	p.marketCalls = append(p.marketCalls, q)
	fn := p.markets
	p.mu.Unlock()
	if fn == nil {
		return sampleAssets(), nil
	}
	return fn(ctx, q)
}

func (p *fakeProvider) FetchMarketChart(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
	p.mu.Lock()
	p.chartCalls = append(p.chartCalls, q)
	fn := p.chart
	p.mu.Unlock()
	if fn == nil {
		return sampleSeries(q), nil
	}
	return fn(ctx, q)
}

func (p *fakeProvider) marketCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.marketCalls)
}

func (p *fakeProvider) chartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chartCalls)
}

type fakeRenderer struct {
	mu    sync.Mutex
	live  int
	specs []ChartSpec
	insts []*fakeInstance
	err   error
}

type fakeInstance struct {
	r         *fakeRenderer
	label     string
	destroyed bool
}

func (i *fakeInstance) View() string { return i.label }

func (i *fakeInstance) Destroy() {
	i.r.mu.Lock()
	defer i.r.mu.Unlock()
	if !i.destroyed {
		i.destroyed = true
		i.r.live--
	}
}

func (r *fakeRenderer) Render(spec ChartSpec) (ChartInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	inst := &fakeInstance{r: r, label: spec.Label}
	r.specs = append(r.specs, spec)
	r.insts = append(r.insts, inst)
	r.live++
	return inst, nil
}

func (r *fakeRenderer) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func rank(n int) *int { return &n }

func sampleAssets() []domain.Asset {
	return []domain.Asset{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", Rank: rank(1), Price: dec("65000"), Change24h: dec("1.5"), MarketCap: dec("1280000000000")},
		{ID: "ethereum", Name: "Ethereum", Symbol: "eth", Rank: rank(2), Price: dec("3200"), Change24h: dec("-0.8"), MarketCap: dec("385000000000")},
	}
}

func sampleSeries(q domain.ChartQuery) domain.Series {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.Series{
		AssetID:  q.AssetID,
		Currency: q.Currency,
		Points: []domain.PricePoint{
			{Time: base, Price: decimal.NewFromInt(100)},
			{Time: base.Add(time.Minute), Price: decimal.NewFromInt(101)},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 14, 3, 5, 0, time.Local)
}

var errBoom = errors.New("boom")

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
