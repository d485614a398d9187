package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"
	"coinboard/internal/infra/asciichart"
	"coinboard/internal/infra/coingecko"
	"coinboard/internal/infra/storage"
	"coinboard/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
	Client     *coingecko.Client
	Metrics    *infra.Metrics
	Dashboard  *service.Dashboard

	syncMu sync.Mutex
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: infra.GlobalMetrics}
}

// Initialize loads configuration and wires storage, the API client and the
// dashboard core. console mirrors logs to stdout (off for the TUI).
func (b *Bootstrap) Initialize(configPath string, console bool) error {
	if configPath == "" {
		configPath = infra.ResolveConfigPath()
	}

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg, console))
	slog.Info("Bootstrapping coinboard", slog.String("config", configPath))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	b.Storage = store
	slog.Info("Database initialized", slog.String("path", cfg.Storage.DBPath))

	// 4. Initialize Icon Downloader
	if cfg.Icons.Enabled {
		downloader, err := infra.NewIconDownloader(cfg.Icons.Dir, cfg.Icons.Size)
		if err != nil {
			return err
		}
		b.Downloader = downloader
		slog.Info("Icon downloader ready", slog.String("dir", cfg.Icons.Dir))
	}

	// 5. Dashboard core
	b.Client = coingecko.NewClientFromConfig(cfg)
	b.Dashboard = b.newDashboard(b.Client)
	return nil
}

func (b *Bootstrap) newDashboard(provider domain.MarketDataProvider) *service.Dashboard {
	cfg := b.Config

	favorites := service.NewFavoritesStore(b.Storage)
	favorites.OnToggle(b.mirrorFavorite)

	refresh := service.NewRefreshController(provider, cfg.API.PageSize, b.Metrics)
	chart := service.NewChartSession(
		provider,
		asciichart.NewRenderer(cfg.UI.ChartWidth, cfg.UI.ChartHeight),
		cfg.UI.ChartDays,
		cfg.UI.ChartInterval,
		b.Metrics,
	)
	return service.NewDashboard(favorites, refresh, chart, cfg.Currency())
}

// Start begins polling and, when icons are enabled, caches the icons of every
// committed snapshot in the background.
func (b *Bootstrap) Start(ctx context.Context) error {
	if b.Downloader != nil {
		b.Dashboard.Refresh().OnCommit(func(snap domain.Snapshot) {
			go b.SyncIcons(ctx, snap)
		})
	}
	return b.Dashboard.Start(ctx, b.Config.RefreshInterval())
}

// Close stops polling and releases storage.
func (b *Bootstrap) Close() {
	if b.Dashboard != nil {
		b.Dashboard.Stop()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}

// mirrorFavorite keeps the CoinInfo cache in step with the watchlist.
func (b *Bootstrap) mirrorFavorite(id string, favorite bool) {
	if err := b.Storage.SetFavorite(id, favorite); err != nil {
		slog.Warn("Failed to mirror favorite", slog.String("id", id), slog.Any("error", err))
	}
}

// SyncIcons upserts asset metadata and caches icons for a snapshot.
// Only one sync runs at a time; a sync already in progress makes this a no-op.
func (b *Bootstrap) SyncIcons(ctx context.Context, snap domain.Snapshot) {
	if !b.syncMu.TryLock() {
		slog.Debug("Icon sync already running, skipping")
		return
	}
	defer b.syncMu.Unlock()

	slog.Info("Starting icon synchronization", slog.Int("assets", len(snap.Assets)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, asset := range snap.Assets {
		wg.Add(1)
		go func(a domain.Asset) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			coin := &domain.CoinInfo{
				ID:       a.ID,
				Symbol:   a.Symbol,
				Name:     a.Name,
				ImageURL: a.Image,
			}

			if existing, _ := b.Storage.GetCoin(a.ID); existing != nil {
				coin.IsFavorite = existing.IsFavorite
				coin.IconPath = existing.IconPath
				coin.LastSyncedAt = existing.LastSyncedAt
				coin.CreatedAt = existing.CreatedAt
			}

			// the watchlist is authoritative for the mirror
			if b.Dashboard != nil {
				coin.IsFavorite = b.Dashboard.Favorites().IsFavorite(a.ID)
			}

			if err := b.Storage.UpsertCoin(coin); err != nil {
				slog.Error("Failed to upsert coin", slog.String("id", a.ID), slog.Any("error", err))
				return
			}

			if a.Image == "" || b.Downloader == nil {
				return
			}
			path, err := b.Downloader.DownloadIcon(a.ID, a.Image)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("id", a.ID), slog.Any("error", err))
				return
			}
			if path != coin.IconPath {
				coin.IconPath = path
				coin.LastSyncedAt = time.Now()
				if err := b.Storage.UpsertCoin(coin); err != nil {
					slog.Error("Failed to record icon", slog.String("id", a.ID), slog.Any("error", err))
				}
			}
		}(asset)
	}

	wg.Wait()
	slog.Info("Icon synchronization completed")
}
