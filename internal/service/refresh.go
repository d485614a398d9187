package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"

	"github.com/robfig/cron/v3"
)

const (
	StatusLoading = "Loading coins…"
	statusLoaded  = "Loaded %d coins • %s"
	statusFailed  = "Failed to load coins. %s"
)

// Status is the one-line refresh status shown under the table.
type Status struct {
	Text      string    `json:"text"`
	Error     bool      `json:"error"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshController owns the committed snapshot.
// Every fetch carries a generation token; only the result of the most recently
// issued fetch is committed, regardless of completion order.
type RefreshController struct {
	provider domain.MarketDataProvider
	pageSize int
	metrics  *infra.Metrics
	clock    domain.Clock
	logger   *slog.Logger

	gen atomic.Uint64

	mu       sync.RWMutex
	snapshot domain.Snapshot
	status   Status
	onCommit []func(domain.Snapshot)
	onStatus []func(Status)

	cronMu sync.Mutex
	cron   *cron.Cron
}

// NewRefreshController creates a controller fetching pageSize assets per refresh.
func NewRefreshController(provider domain.MarketDataProvider, pageSize int, metrics *infra.Metrics) *RefreshController {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &RefreshController{
		provider: provider,
		pageSize: pageSize,
		metrics:  metrics,
		clock:    time.Now,
		logger:   slog.Default().With("module", "refresh"),
	}
}

// SetClock replaces the time source (tests).
func (c *RefreshController) SetClock(clock domain.Clock) {
	c.clock = clock
}

// OnCommit registers a hook called after each committed snapshot.
func (c *RefreshController) OnCommit(fn func(domain.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCommit = append(c.onCommit, fn)
}

// OnStatus registers a hook called after each status change.
func (c *RefreshController) OnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// Snapshot returns the last committed snapshot. Zero before the first success.
func (c *RefreshController) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Status returns the current status line.
func (c *RefreshController) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Refresh fetches the market list for currency and commits it if no newer
// refresh was issued meanwhile. A superseded result returns ErrStaleResult.
// On failure the previous snapshot is kept.
func (c *RefreshController) Refresh(ctx context.Context, currency domain.Currency) (domain.Snapshot, error) {
	token := c.gen.Add(1)
	c.metrics.RecordRefreshIssued()
	c.setStatus(token, Status{Text: StatusLoading})

	start := time.Now()
	assets, err := c.provider.FetchMarkets(ctx, domain.MarketQuery{
		Currency: currency,
		PerPage:  c.pageSize,
		Page:     1,
	})

	c.mu.Lock()
	if token != c.gen.Load() {
		c.mu.Unlock()
		c.metrics.RecordRefreshStale()
		c.logger.Debug("Discarding superseded refresh",
			slog.Uint64("token", token),
			slog.String("currency", string(currency)),
			slog.Bool("failed", err != nil),
		)
		return domain.Snapshot{}, domain.ErrStaleResult
	}

	if err != nil {
		c.status = Status{
			Text:      fmt.Sprintf(statusFailed, describeFetchError(err)),
			Error:     true,
			UpdatedAt: c.clock(),
		}
		status := c.status
		statusHooks := c.onStatus
		c.mu.Unlock()

		c.metrics.RecordRefreshFailed()
		c.logger.Error("Failed to load coins",
			slog.String("currency", string(currency)),
			slog.Any("error", err),
		)
		for _, fn := range statusHooks {
			fn(status)
		}
		return domain.Snapshot{}, err
	}

	now := c.clock()
	c.snapshot = domain.Snapshot{
		Currency:  currency,
		Assets:    assets,
		FetchedAt: now,
	}
	c.status = Status{
		Text:      fmt.Sprintf(statusLoaded, len(assets), now.Format("15:04:05")),
		UpdatedAt: now,
	}
	snap := c.snapshot
	status := c.status
	commitHooks := c.onCommit
	statusHooks := c.onStatus
	c.mu.Unlock()

	c.metrics.RecordRefreshCommitted(time.Since(start))
	c.logger.Info("Snapshot committed",
		slog.String("currency", string(currency)),
		slog.Int("count", len(assets)),
	)
	for _, fn := range commitHooks {
		fn(snap)
	}
	for _, fn := range statusHooks {
		fn(status)
	}
	return snap, nil
}

// setStatus updates the status line unless token was already superseded.
func (c *RefreshController) setStatus(token uint64, s Status) {
	c.mu.Lock()
	if token != c.gen.Load() {
		c.mu.Unlock()
		return
	}
	s.UpdatedAt = c.clock()
	c.status = s
	hooks := c.onStatus
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}
}

func describeFetchError(err error) string {
	if code := domain.StatusCode(err); code != 0 {
		return fmt.Sprintf("HTTP %d", code)
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) && netErr.Err != nil {
		return netErr.Err.Error()
	}
	return err.Error()
}

// Start schedules a refresh every interval until Stop or ctx is done.
// Ticks fire whether or not previous refreshes failed.
func (c *RefreshController) Start(ctx context.Context, interval time.Duration, currency func() domain.Currency) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}

	c.cronMu.Lock()
	defer c.cronMu.Unlock()
	if c.cron != nil {
		return errors.New("refresh polling already started")
	}

	sched := cron.New()
	_, err := sched.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.Refresh(ctx, currency()); err != nil && !errors.Is(err, domain.ErrStaleResult) {
			c.logger.Warn("Scheduled refresh failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	sched.Start()
	c.cron = sched
	c.logger.Info("Polling started", slog.Duration("interval", interval))

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Stop halts polling and waits for a running tick to finish.
func (c *RefreshController) Stop() {
	c.cronMu.Lock()
	sched := c.cron
	c.cron = nil
	c.cronMu.Unlock()

	if sched == nil {
		return
	}
	<-sched.Stop().Done()
	c.logger.Info("Polling stopped")
}
