package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coinboard/internal/domain"
)

// View is a consistent copy of everything a surface renders.
// Seq grows with every View built; a higher Seq is never older state.
type View struct {
	Seq       uint64           `json:"seq"`
	State     domain.ViewState `json:"state"`
	Currency  domain.Currency  `json:"currency"` // currency of the rows' prices
	Rows      []domain.Asset   `json:"rows"`
	Total     int              `json:"total"`
	Favorites FavoriteSet      `json:"-"`
	Status    Status           `json:"status"`
	Chart     ChartView        `json:"chart"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Dashboard holds the application state and the commands that change it.
// Rows are recomputed from the committed snapshot on every View.
type Dashboard struct {
	favorites *FavoritesStore
	refresh   *RefreshController
	chart     *ChartSession
	logger    *slog.Logger

	mu          sync.RWMutex
	state       domain.ViewState
	subscribers []func(View)

	viewMu sync.Mutex
	seq    uint64
}

// NewDashboard wires the core components together.
func NewDashboard(favorites *FavoritesStore, refresh *RefreshController, chart *ChartSession, currency domain.Currency) *Dashboard {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	d := &Dashboard{
		favorites: favorites,
		refresh:   refresh,
		chart:     chart,
		logger:    slog.Default().With("module", "dashboard"),
		state:     domain.ViewState{Currency: currency},
	}
	refresh.OnCommit(func(domain.Snapshot) { d.notify() })
	refresh.OnStatus(func(Status) { d.notify() })
	chart.OnChange(d.notify)
	return d
}

// Subscribe registers fn to receive the view after every change.
func (d *Dashboard) Subscribe(fn func(View)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// Refresh exposes the controller for hooks such as icon syncing.
func (d *Dashboard) Refresh() *RefreshController {
	return d.refresh
}

// Favorites exposes the favorites store.
func (d *Dashboard) Favorites() *FavoritesStore {
	return d.favorites
}

// State returns the current view state.
func (d *Dashboard) State() domain.ViewState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// View derives the visible rows from the latest snapshot and current state.
// Views are built one at a time so that Seq order matches read order.
func (d *Dashboard) View() View {
	d.viewMu.Lock()
	defer d.viewMu.Unlock()

	state := d.State()
	snap := d.refresh.Snapshot()
	favs := d.favorites.List()
	d.seq++

	return View{
		Seq:       d.seq,
		State:     state,
		Currency:  snap.Currency,
		Rows:      ComputeVisible(snap, state.Query, state.FavoritesOnly, favs),
		Total:     len(snap.Assets),
		Favorites: favs,
		Status:    d.refresh.Status(),
		Chart:     d.chart.View(),
		FetchedAt: snap.FetchedAt,
	}
}

// Start performs the initial load and begins polling.
func (d *Dashboard) Start(ctx context.Context, interval time.Duration) error {
	go d.load(ctx)
	return d.refresh.Start(ctx, interval, func() domain.Currency {
		return d.State().Currency
	})
}

// Stop halts polling and releases the chart.
func (d *Dashboard) Stop() {
	d.refresh.Stop()
	d.chart.Shutdown()
}

func (d *Dashboard) load(ctx context.Context) {
	if err := d.ManualRefresh(ctx); err != nil && !IsSuperseded(err) {
		d.logger.Warn("Initial load failed", slog.Any("error", err))
	}
}

// SetQuery replaces the search query.
func (d *Dashboard) SetQuery(query string) {
	d.mu.Lock()
	if d.state.Query == query {
		d.mu.Unlock()
		return
	}
	d.state.Query = query
	d.mu.Unlock()
	d.notify()
}

// ToggleFavorite flips the favorite flag of id and returns the new value.
// It never triggers a fetch.
func (d *Dashboard) ToggleFavorite(id string) bool {
	fav := d.favorites.Toggle(id)
	d.logger.Debug("Favorite toggled", slog.String("id", id), slog.Bool("favorite", fav))
	d.notify()
	return fav
}

// ToggleFavoritesOnly flips the favorites-only filter and returns the new value.
func (d *Dashboard) ToggleFavoritesOnly() bool {
	d.mu.Lock()
	d.state.FavoritesOnly = !d.state.FavoritesOnly
	on := d.state.FavoritesOnly
	d.mu.Unlock()
	d.notify()
	return on
}

// SetCurrency switches the active currency and refreshes once.
// Selecting the active currency again is a no-op.
func (d *Dashboard) SetCurrency(ctx context.Context, code string) error {
	cur, err := domain.ParseCurrency(code)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.state.Currency == cur {
		d.mu.Unlock()
		return nil
	}
	d.state.Currency = cur
	d.mu.Unlock()
	d.logger.Info("Currency changed", slog.String("currency", string(cur)))
	d.notify()

	_, err = d.refresh.Refresh(ctx, cur)
	return err
}

// CycleCurrency moves to the next supported currency.
func (d *Dashboard) CycleCurrency(ctx context.Context) error {
	return d.SetCurrency(ctx, string(d.State().Currency.Next()))
}

// ManualRefresh refetches the market list in the active currency.
func (d *Dashboard) ManualRefresh(ctx context.Context) error {
	_, err := d.refresh.Refresh(ctx, d.State().Currency)
	return err
}

// OpenChart opens the chart for an asset of the latest snapshot.
func (d *Dashboard) OpenChart(ctx context.Context, id string) error {
	asset, ok := d.refresh.Snapshot().Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAsset, id)
	}
	return d.chart.Open(ctx, asset, d.State().Currency)
}

// CloseChart hides the chart overlay.
func (d *Dashboard) CloseChart() {
	d.chart.Close()
}

// DismissNotice clears the chart failure notice.
func (d *Dashboard) DismissNotice() {
	d.chart.DismissNotice()
}

// LiveCharts returns the number of live chart instances.
func (d *Dashboard) LiveCharts() int {
	return d.chart.LiveInstances()
}

func (d *Dashboard) notify() {
	d.mu.RLock()
	subs := d.subscribers
	d.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	v := d.View()
	for _, fn := range subs {
		fn(v)
	}
}
