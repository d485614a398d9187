package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"

	"github.com/google/uuid"
)

// ChartNotice is the blocking message surfaced when a chart cannot be loaded.
const ChartNotice = "Failed to load chart data. Try again."

// ChartState is the lifecycle state of the chart overlay.
type ChartState int

const (
	ChartClosed ChartState = iota
	ChartLoading
	ChartRendered
)

func (s ChartState) String() string {
	switch s {
	case ChartLoading:
		return "loading"
	case ChartRendered:
		return "rendered"
	default:
		return "closed"
	}
}

// MarshalText lets the state appear as a string in JSON views.
func (s ChartState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the string form produced by MarshalText.
func (s *ChartState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "closed":
		*s = ChartClosed
	case "loading":
		*s = ChartLoading
	case "rendered":
		*s = ChartRendered
	default:
		return fmt.Errorf("unknown chart state %q", b)
	}
	return nil
}

// ChartSpec is everything a renderer needs to draw one series.
type ChartSpec struct {
	Label    string
	Currency domain.Currency
	Series   domain.Series
}

// ChartInstance is a live, drawable chart. Destroy releases it; a destroyed
// instance must not be used again.
type ChartInstance interface {
	View() string
	Destroy()
}

// ChartRenderer builds chart instances.
type ChartRenderer interface {
	Render(spec ChartSpec) (ChartInstance, error)
}

// ChartView is a read-only copy of the chart session for surfaces.
type ChartView struct {
	SessionID string     `json:"session_id,omitempty"`
	State     ChartState `json:"state"`
	AssetID   string     `json:"asset_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Subtitle  string     `json:"subtitle,omitempty"`
	Body      string     `json:"body,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

// ChartSession is the single chart overlay.
// At most one ChartInstance is alive; the previous one is destroyed before a
// new one is built. Only the most recently requested open may build.
type ChartSession struct {
	provider domain.MarketDataProvider
	renderer ChartRenderer
	metrics  *infra.Metrics
	clock    domain.Clock
	logger   *slog.Logger
	days     int
	interval string

	mu        sync.Mutex
	gen       uint64
	state     ChartState
	restoreTo ChartState
	sessionID string
	assetID   string
	title     string
	subtitle  string
	notice    string

	// live instance and the header it was built for
	instance         ChartInstance
	instanceAsset    string
	instanceTitle    string
	instanceSubtitle string

	onChange []func()
}

// NewChartSession creates a closed session fetching `days` of history at `interval`.
func NewChartSession(provider domain.MarketDataProvider, renderer ChartRenderer, days int, interval string, metrics *infra.Metrics) *ChartSession {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	if days <= 0 {
		days = 1
	}
	if interval == "" {
		interval = "minute"
	}
	return &ChartSession{
		provider: provider,
		renderer: renderer,
		metrics:  metrics,
		clock:    time.Now,
		logger:   slog.Default().With("module", "chart"),
		days:     days,
		interval: interval,
	}
}

// SetClock replaces the time source (tests).
func (s *ChartSession) SetClock(clock domain.Clock) {
	s.clock = clock
}

// OnChange registers a hook called after every state change.
func (s *ChartSession) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Open shows the overlay for asset in Loading state and fetches its series.
// It returns ErrStaleResult when a later Open or Close superseded it.
func (s *ChartSession) Open(ctx context.Context, asset domain.Asset, currency domain.Currency) error {
	s.mu.Lock()
	s.gen++
	token := s.gen
	if s.state != ChartLoading {
		s.restoreTo = s.state
	}
	s.state = ChartLoading
	s.sessionID = uuid.NewString()
	s.assetID = asset.ID
	s.title = chartTitle(asset)
	s.subtitle = fmt.Sprintf("%dh • %s", s.days*24, s.clock().Format("15:04:05"))
	s.notice = ""
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify()

	s.metrics.RecordChartOpen()
	s.logger.Info("Opening chart",
		slog.String("session", sessionID),
		slog.String("asset", asset.ID),
		slog.String("currency", string(currency)),
	)

	series, err := s.provider.FetchMarketChart(ctx, domain.ChartQuery{
		AssetID:  asset.ID,
		Currency: currency,
		Days:     s.days,
		Interval: s.interval,
	})

	s.mu.Lock()
	if token != s.gen {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded chart result",
			slog.String("session", sessionID),
			slog.Bool("failed", err != nil),
		)
		return domain.ErrStaleResult
	}

	if err != nil {
		s.failLocked()
		s.mu.Unlock()
		s.metrics.RecordChartFailure()
		s.logger.Error("Failed to load chart data",
			slog.String("session", sessionID),
			slog.String("asset", asset.ID),
			slog.Any("error", err),
		)
		s.notify()
		return err
	}

	s.destroyLocked()

	inst, err := s.renderer.Render(ChartSpec{
		Label:    fmt.Sprintf("%s price (%s)", asset.Name, currency.Upper()),
		Currency: currency,
		Series:   series,
	})
	if err != nil {
		s.failLocked()
		s.mu.Unlock()
		s.metrics.RecordChartFailure()
		s.logger.Error("Failed to render chart",
			slog.String("session", sessionID),
			slog.Any("error", err),
		)
		s.notify()
		return fmt.Errorf("render chart: %w", err)
	}

	s.instance = inst
	s.instanceAsset = asset.ID
	s.instanceTitle = s.title
	s.instanceSubtitle = s.subtitle
	s.state = ChartRendered
	s.mu.Unlock()

	s.metrics.SetLiveCharts(1)
	s.notify()
	return nil
}

// failLocked restores the state that was current before loading began.
func (s *ChartSession) failLocked() {
	s.notice = ChartNotice
	if s.restoreTo == ChartRendered && s.instance != nil {
		s.state = ChartRendered
		s.assetID = s.instanceAsset
		s.title = s.instanceTitle
		s.subtitle = s.instanceSubtitle
		return
	}
	s.state = ChartClosed
}

func (s *ChartSession) destroyLocked() {
	if s.instance == nil {
		return
	}
	s.instance.Destroy()
	s.instance = nil
	s.instanceAsset = ""
	s.metrics.SetLiveCharts(0)
}

// Close hides the overlay and invalidates any in-flight fetch.
// The live instance, if any, stays until the next successful Open replaces it.
func (s *ChartSession) Close() {
	s.mu.Lock()
	s.gen++
	changed := s.state != ChartClosed
	s.state = ChartClosed
	s.restoreTo = ChartClosed
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// DismissNotice clears the failure notice.
func (s *ChartSession) DismissNotice() {
	s.mu.Lock()
	had := s.notice != ""
	s.notice = ""
	s.mu.Unlock()

	if had {
		s.notify()
	}
}

// Shutdown closes the session and destroys the live instance.
func (s *ChartSession) Shutdown() {
	s.mu.Lock()
	s.gen++
	s.state = ChartClosed
	s.destroyLocked()
	s.mu.Unlock()
}

// State returns the current state.
func (s *ChartSession) State() ChartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LiveInstances returns the number of undestroyed chart instances (0 or 1).
func (s *ChartSession) LiveInstances() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instance != nil {
		return 1
	}
	return 0
}

// View returns a copy of the session for rendering.
func (s *ChartSession) View() ChartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := ChartView{
		State:  s.state,
		Notice: s.notice,
	}
	if s.state == ChartClosed {
		return v
	}
	v.SessionID = s.sessionID
	v.AssetID = s.assetID
	v.Title = s.title
	v.Subtitle = s.subtitle
	if s.state == ChartRendered && s.instance != nil {
		v.Body = s.instance.View()
	}
	return v
}

func (s *ChartSession) notify() {
	s.mu.Lock()
	hooks := s.onChange
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func chartTitle(a domain.Asset) string {
	return fmt.Sprintf("%s (%s)", a.Name, strings.ToUpper(a.Symbol))
}

// IsSuperseded reports whether err only means a newer request took over.
func IsSuperseded(err error) bool {
	return errors.Is(err, domain.ErrStaleResult)
}
